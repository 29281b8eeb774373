package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	// stdout carries native messages in host mode, so logs go to stderr.
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	args := applyBrowserLaunch(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabcounter command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tabcounter",
		Short:         "Relative tab labels for Tree Style Tab and Chrome",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newHostCmd())
	root.AddCommand(newCDPCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newManifestCmd())
	root.AddCommand(newBootstrapCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// isBrowserLaunch reports whether the browser spawned us as a native host.
// Chrome passes the caller origin; Firefox passes the manifest path and the
// extension id.
func isBrowserLaunch(args []string) bool {
	if len(args) < 2 {
		return false
	}
	first := args[1]
	if strings.HasPrefix(first, "chrome-extension://") {
		return true
	}
	return len(args) >= 3 && filepath.IsAbs(first) && strings.HasSuffix(first, ".json")
}

func applyBrowserLaunch(args []string) []string {
	if !isBrowserLaunch(args) {
		return args
	}
	return []string{args[0], "host"}
}
