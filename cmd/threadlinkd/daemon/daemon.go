// Package daemon runs the threadlink service: the inbound callback receiver
// and the resolve endpoint, wired per CLI flags or a config file.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/intakehq/threadlink"
)

// Options extends the service options with daemon-only flags.
type Options struct {
	threadlink.Options
	ConfigURL string `short:"f" long:"config" description:"options file (YAML), file path or URL"`
	Debug     bool   `short:"d" long:"debug" description:"enable debug logging"`
}

// Run parses args, builds the service and serves until interrupted.
func Run(args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if options.Debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serviceOptions := &options.Options
	if options.ConfigURL != "" {
		loaded, err := threadlink.LoadOptions(ctx, options.ConfigURL)
		if err != nil {
			return err
		}
		serviceOptions = loaded
	}

	service, err := threadlink.New(ctx, serviceOptions)
	if err != nil {
		return err
	}
	defer service.Close()

	server := service.HTTP(ctx, "")
	go func() {
		<-ctx.Done()
		slog.Info("shutting down", "addr", server.Addr)
		_ = server.Shutdown(context.Background())
	}()

	slog.Info("threadlink listening", "addr", server.Addr, "strategy", serviceOptions.Strategy)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
