package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter"
	"pkt.systems/tabcounter/internal/appconfig"
	"pkt.systems/tabcounter/internal/cdpprovider"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/internal/version"
)

func newCDPCmd() *cobra.Command {
	var cfgPath string
	var url string
	var headless bool
	cmd := &cobra.Command{
		Use:   "cdp",
		Short: "Label Chrome tabs over the DevTools protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				cfg.CDP.URL = url
			}
			if cmd.Flags().Changed("headless") {
				cfg.CDP.Headless = headless
			}
			if err := appconfig.Validate(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logx.ContextWithProviderLogger(ctx, cdpprovider.ProviderName)
			return runCDP(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&url, "url", "", "DevTools websocket URL of a running browser (launches one when empty)")
	cmd.Flags().BoolVar(&headless, "headless", false, "launch the browser headless")
	return cmd
}

func runCDP(ctx context.Context, cfg appconfig.Config) error {
	logger := pslog.Ctx(ctx)
	logger.Info("cdp start", "version", version.Current(), "url", cfg.CDP.URL, "headless", cfg.CDP.Headless)

	provider, err := cdpprovider.Open(ctx, cdpprovider.Config{
		URL:          cfg.CDP.URL,
		Headless:     cfg.CDP.Headless,
		PollInterval: time.Duration(cfg.CDP.PollIntervalMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer provider.Close()

	labeler, err := tabcounter.New(cfg.LabelerConfig(), tabcounter.LabelerDeps{
		Provider:     provider,
		ProviderName: cdpprovider.ProviderName,
		Sources:      []tabcounter.Source{provider.Watch},
	}, tabcounter.WithInitialRefresh())
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := labeler.Stop(stopCtx); err != nil {
			logger.Warn("labeler stop failed", "err", err)
		}
	}()
	if err := labeler.Start(ctx); err != nil {
		return err
	}
	return labeler.Wait()
}
