package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pbulbule13/vinegar/pkg/server"
	"github.com/pbulbule13/vinegar/pkg/voice"
)

func serveCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("serve", flag.ContinueOnError)
	set.SetOutput(streams.err)
	host := set.String("host", "", "Address to bind (overrides config).")
	port := set.Int("port", 0, "Port number (overrides config).")
	watch := set.Bool("watch", false, "Reload configuration on file change.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: vinegarctl serve [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
		fmt.Fprintln(streams.err, "\nRoutes:")
		fmt.Fprintln(streams.err, "  POST /chat                     Run one chat turn")
		fmt.Fprintln(streams.err, "  GET  /health                   Health probe")
		fmt.Fprintln(streams.err, "  GET  /metrics                  Service counters")
		fmt.Fprintln(streams.err, "  GET  /profile/{id}             Fetch a profile")
		fmt.Fprintln(streams.err, "  POST /profile/{id}             Save a profile")
		fmt.Fprintln(streams.err, "  POST /profile/{id}/initialize  Seed knowledge from a profile")
		fmt.Fprintln(streams.err, "  GET  /ws/{user_id}             WebSocket chat")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := newLogger()
	eng, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		eng.close(closeCtx)
	}()

	opts := []server.Option{server.WithLogger(log)}
	if eng.synth != nil {
		opts = append(opts, server.WithVoice(eng.synth))
	} else {
		opts = append(opts, server.WithVoice(voice.Noop{}))
	}
	h := server.New(eng.orch, eng.profiles, eng.rag, eng.sessions, opts...)

	if *watch {
		loader, err := configLoader(cfgPath, log)
		if err != nil {
			return err
		}
		go func() {
			if err := loader.Watch(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("config watch stopped", "error", err)
			}
		}()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", strings.TrimSpace(cfg.Server.Host), cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()
	srv := &http.Server{Handler: h}
	fmt.Fprintf(streams.out, "vinegarctl serve listening on http://%s\n", listener.Addr())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
