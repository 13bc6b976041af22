// Command gatewayd runs a single market-data gateway session, connecting
// to one CTP/SimNow front end and printing accepted ticks until
// interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctpmd/gateway"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	metricsAddr string
	symbols     []string
)

func main() {
	root := &cobra.Command{
		Use:   "gatewayd",
		Short: "Run a CTP market-data gateway",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a gateway config file (yaml/json/toml)")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	root.Flags().StringSliceVar(&symbols, "subscribe", nil, "symbols or glob patterns to subscribe to on startup")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := gateway.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := gateway.NewDevelopmentLogger(cfg.GatewayName)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			logger.Errorf("metrics server exited: %v", err)
		}
	}()

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithTickHandler(func(t *gateway.Tick) {
			logger.Infof("tick %s %s %s", t.Symbol, t.Exchange, t.LastPrice.String())
		}),
		gateway.WithAlertHandler(func(level, message string) {
			logger.Criticalf("[%s] %s", level, message)
		}),
	)
	if err != nil {
		return fmt.Errorf("construct gateway: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gw.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer gw.Disconnect()

	if len(symbols) > 0 {
		accepted, err := gw.Subscribe(symbols)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		logger.Infof("subscribed: %v", accepted)
	}

	<-ctx.Done()
	logger.Infof("shutting down")
	return nil
}
