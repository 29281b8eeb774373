package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter"
	"pkt.systems/tabcounter/internal/appconfig"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/internal/nativemsg"
	"pkt.systems/tabcounter/internal/treeprovider"
	"pkt.systems/tabcounter/internal/version"
	"pkt.systems/tabcounter/schema"
)

var errRelayClosed = errors.New("relay connection closed")

func newHostCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run as the native-messaging host for the relay extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logx.ContextWithProviderLogger(ctx, treeprovider.ProviderName)
			return runHost(ctx, cfg, nativemsg.Stdio(os.Stdin, os.Stdout))
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func runHost(ctx context.Context, cfg appconfig.Config, rwc io.ReadWriteCloser) error {
	logger := pslog.Ctx(ctx)
	logger.Info("host start", "version", version.Current(), "extension", cfg.TST.ExtensionID)

	conn := jsonrpc2.NewConn(nativemsg.NewStream(rwc))
	defer func() { _ = conn.Close() }()
	client := treeprovider.New(conn, treeprovider.Config{ExtensionID: cfg.TST.ExtensionID})

	labeler, err := tabcounter.New(cfg.LabelerConfig(), tabcounter.LabelerDeps{
		Provider:     client,
		ProviderName: treeprovider.ProviderName,
		Sources:      []tabcounter.Source{relaySource(conn)},
	}, tabcounter.WithInitialRefresh())
	if err != nil {
		return err
	}

	register := func() {
		if !cfg.TST.Register {
			return
		}
		regCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		err := client.Register(regCtx, treeprovider.Registration{Name: cfg.TST.Name, Style: cfg.TST.Style})
		if err != nil {
			logger.Warn("tst register failed", "err", err)
			return
		}
		logger.Info("tst registered", "name", cfg.TST.Name)
	}
	publish := func(n schema.Notification) {
		// Tree Style Tab forgets listeners when it restarts.
		if n.Type == schema.NotifyReady {
			go register()
		}
		labeler.Publish(n)
	}
	conn.Go(ctx, client.Handler(ctx, publish))
	register()

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
	err = labeler.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, errRelayClosed) {
		logger.Info("relay closed")
		return nil
	}
	return err
}

// relaySource ends the labeler when the relay side of the connection goes
// away, which is how the browser tells a native host to exit.
func relaySource(conn jsonrpc2.Conn) tabcounter.Source {
	return func(ctx context.Context, _ func(schema.Notification)) error {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			if err := conn.Err(); err != nil {
				return err
			}
			return errRelayClosed
		}
	}
}
