// Command meshnode is the long-running mesh clock process: it loads
// configuration, brings up a radio, builds a meshclock.Core, drives its
// tick loop, and serves Prometheus metrics and (optionally) an MQTT status
// bridge. Structurally this follows the teacher's cmd/mqttradio/main.go:
// -config flag, BurntSushi/toml, embd/periph init, then run forever.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tve/meshclock"
	"github.com/tve/meshclock/meshbridge"
	"github.com/tve/meshclock/monoclock"
	"github.com/tve/meshclock/radio"
	"github.com/tve/meshclock/thread"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "meshnode.toml", "path to config file")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Debug)
	diag := asLogPrintf(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()

	r, err := buildRadio(cfg.Radio, diag)
	if err != nil {
		return err
	}

	clockSource := monoclock.NewSafe()
	core, err := meshclock.New(meshclock.Config{
		Interval:           cfg.Clock.Interval,
		SlewAlpha:          cfg.Clock.SlewAlpha,
		LargeStepThreshold: cfg.Clock.LargeStepThreshold,
		SyncTimeout:        cfg.Clock.SyncTimeout,
		JitterPercent:      cfg.Clock.JitterPercent,
		TxDelay:            cfg.Clock.TxDelay,
		ClockSource:        clockSource,
	}, r, meshclock.Opts{
		Logger:  diag,
		Metrics: meshclock.NewMetrics(reg),
	})
	if err != nil {
		return err
	}

	if err := core.Begin(true); err != nil {
		return err
	}
	log.Info("meshnode started", "radio", cfg.Radio.Type, "interval_ms", cfg.Clock.Interval)

	var metricsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		metricsErrCh = startMetricsServer(ctx, log, cfg.Metrics.Addr, reg, core, r)
	}

	var bridge *meshbridge.Bridge
	if cfg.Mqtt.Host != "" {
		bridge, err = meshbridge.New(cfg.Mqtt, diag)
		if err != nil {
			log.Error("meshbridge connect failed, continuing without it", "error", err)
		} else {
			defer bridge.Close()
			stop := make(chan struct{})
			go func() {
				<-ctx.Done()
				close(stop)
			}()
			go bridge.Run(stop, 5*time.Second, core, func() int64 { return time.Now().UnixMilli() })
		}
	}

	if err := thread.Realtime(); err != nil {
		log.Warn("could not elevate tick goroutine to realtime scheduling", "error", err)
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			core.Tick()
		case err, ok := <-metricsErrCh:
			if ok && err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			metricsErrCh = nil
		case <-ctx.Done():
			return nil
		}
	}
}

// startMetricsServer mirrors gnmi-writer/cmd/gnmi-writer/main.go's function
// of the same name: a /metrics HTTP listener on its own goroutine, shut down
// cleanly when ctx is cancelled.
func startMetricsServer(ctx context.Context, log interface {
	Info(msg string, args ...any)
}, addr string, reg *prometheus.Registry, core *meshclock.Core, r radio.Radio) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		registerDiagHandlers(mux, core, r)
		srv := &http.Server{Addr: addr, Handler: mux}

		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		log.Info("prometheus metrics server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}
