package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/tabcounter/internal/appconfig"
	"pkt.systems/tabcounter/internal/nativemsg"
)

func newManifestCmd() *cobra.Command {
	var cfgPath string
	var binPath string
	var extensions []string
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the native-messaging host manifest",
		Long: `Print the native-messaging host manifest for this binary.

Save it as <host.name>.json in the browser's NativeMessagingHosts directory,
for example ~/.mozilla/native-messaging-hosts/ for Firefox.`,
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
			if cmd.Flags().Changed("extension") {
				cfg.Host.AllowedExtensions = extensions
			}
			manifest, err := nativemsg.NewManifest(cfg.Host.Name, cfg.Host.Description, binPath, cfg.Host.AllowedExtensions)
			if err != nil {
				return err
			}
			data, err := manifest.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&binPath, "path", "", "host binary path (defaults to this executable)")
	cmd.Flags().StringSliceVar(&extensions, "extension", nil, "allowed extension id or chrome-extension:// origin (repeatable)")
	return cmd
}
