package main

import (
	"flag"
	"fmt"
	"os"

	"pkt.systems/tabcounter/bootstrap"
	"pkt.systems/tabcounter/internal/appconfig"
)

func main() {
	var output string
	var overwrite bool
	var binPath string
	flag.StringVar(&output, "output", ".", "output directory")
	flag.StringVar(&output, "o", ".", "output directory")
	flag.BoolVar(&overwrite, "force", false, "overwrite existing files")
	flag.StringVar(&binPath, "path", bootstrap.DefaultBinPath, "host binary path for the host manifest")
	flag.Parse()

	files, err := bootstrap.RenderFiles(bootstrap.Options{BinPath: binPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	paths, err := bootstrap.WriteFiles(output, appconfig.DefaultConfig().Host.Name, files, overwrite)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, paths.ConfigPath)
	fmt.Fprintln(os.Stdout, paths.HostManifestPath)
	fmt.Fprintln(os.Stdout, paths.ExtensionDir)
}
