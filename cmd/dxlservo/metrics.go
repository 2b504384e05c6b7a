package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gwillem/dxlservo/pkg/monitor"
	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/telemetry"
)

type MetricsCommand struct {
	Listen string `short:"l" long:"listen" default:":9108" description:"HTTP listen address"`
	Path   string `long:"path" default:"/metrics" description:"Metrics endpoint path"`
	Hz     int    `long:"hz" default:"5" description:"Polling frequency"`
	Record string `short:"r" long:"record" description:"Also append readings to this CBOR file"`
}

func (c *MetricsCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := telemetry.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var ctrl *monitor.Controller
	r, err := openRig(ctx, func(n servo.Notice) {
		if ctrl != nil {
			ctrl.Notice(n)
			return
		}
		m.HandleNotice(n)
		printNotices(n)
	})
	if err != nil {
		return err
	}
	defer r.Close(context.Background())

	var rec *telemetry.Recorder
	if c.Record != "" {
		if rec, err = telemetry.NewRecorder(c.Record); err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer rec.Close()
	}

	ctrl, err = monitor.NewController(monitor.Config{Rig: r, Hz: c.Hz, Recorder: rec, Metrics: m})
	if err != nil {
		return err
	}
	go func() {
		for l := range ctrl.Logs() {
			log.Println(l)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(c.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: c.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Controller error: %v", err)
		}
	}()

	log.Printf("Serving %s on %s at %d Hz", c.Path, c.Listen, c.Hz)
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
