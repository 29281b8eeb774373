package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/bootstrap"
	"pkt.systems/tabcounter/internal/appconfig"
)

func newBootstrapCmd() *cobra.Command {
	var cfgPath string
	var outputDir string
	var binPath string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Write the relay extension, host manifest and config",
		Long: `Write everything a browser needs to run tabcounter as a native host:

  config.yaml           tabcounter config
  <host.name>.json      native-messaging host manifest
  extension/            relay WebExtension (load it as a temporary add-on)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if binPath == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				binPath = exe
			}
			binPath, err = filepath.Abs(binPath)
			if err != nil {
				return err
			}
			files, err := bootstrap.RenderFiles(bootstrap.Options{Config: &cfg, BinPath: binPath})
			if err != nil {
				return err
			}
			paths, err := bootstrap.WriteFiles(outputDir, cfg.Host.Name, files, overwrite)
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("bootstrap written", "dir", outputDir, "host", cfg.Host.Name)
			out := cmd.OutOrStdout()
			for _, path := range []string{paths.ConfigPath, paths.HostManifestPath, paths.ExtensionDir} {
				if _, err := fmt.Fprintln(out, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().StringVar(&binPath, "path", "", "host binary path (defaults to this executable)")
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite existing files")
	return cmd
}
