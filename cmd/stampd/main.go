// Command stampd serves the PDF stamping API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/institutovitalis/pdfstamp/observability"
	"github.com/institutovitalis/pdfstamp/server"
	"github.com/institutovitalis/pdfstamp/stamp"
)

type options struct {
	addr        string
	maxUploadMB int64
	opacity     float64
	compress    bool
	logLevel    string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stampd: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "stampd: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: stampd [flags]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.addr, "addr", ":8080", "Listen address")
	flag.Int64Var(&opts.maxUploadMB, "max-upload-mb", 32, "Per-file upload limit in MiB")
	flag.Float64Var(&opts.opacity, "opacity", 0, "Overlay fill alpha in (0,1); 0 draws opaque")
	flag.BoolVar(&opts.compress, "compress", true, "Flate-compress generated content streams")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if opts.maxUploadMB <= 0 {
		return opts, fmt.Errorf("-max-upload-mb must be positive")
	}
	if opts.opacity < 0 || opts.opacity > 1 {
		return opts, fmt.Errorf("-opacity must be within [0, 1]")
	}
	return opts, nil
}

func run(opts options) error {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := observability.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	svc := stamp.NewService(stamp.Config{
		Opacity:  opts.opacity,
		Compress: opts.compress,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr: opts.addr,
		Handler: server.New(svc, server.Config{
			MaxUploadBytes: opts.maxUploadMB << 20,
			Logger:         logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", observability.String("addr", opts.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
