package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/pbulbule13/vinegar/pkg/orchestrator"
)

func chatCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("chat", flag.ContinueOnError)
	set.SetOutput(streams.err)
	userID := set.String("user", "local", "User ID for the turn.")
	sessionID := set.String("session", "", "Session ID to continue; blank starts a new one.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: vinegarctl chat [flags] <message>")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	message := strings.TrimSpace(strings.Join(set.Args(), " "))
	if message == "" {
		set.Usage()
		return fmt.Errorf("message is required")
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
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

	resp, err := eng.orch.Process(ctx, orchestrator.Request{
		Message:   message,
		UserID:    *userID,
		SessionID: *sessionID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(streams.out, resp.Text)
	fmt.Fprintf(streams.err, "agent=%s session=%s\n", resp.AgentType, resp.SessionID)
	return nil
}
