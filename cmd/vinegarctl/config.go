package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/pbulbule13/vinegar/pkg/config"
)

func configCommand(argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("config", flag.ContinueOnError)
	set.SetOutput(streams.err)
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: vinegarctl config <show|validate>")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	sub := "show"
	if set.NArg() > 0 {
		sub = set.Arg(0)
	}
	switch sub {
	case "show":
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			return err
		}
		redact(&cfg)
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(streams.out, "# %s\n%s", cfgPath, data)
		return nil
	case "validate":
		if _, err := loadConfig(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(streams.out, "%s: ok\n", cfgPath)
		return nil
	default:
		set.Usage()
		return fmt.Errorf("unknown config subcommand %q", sub)
	}
}

func redact(cfg *config.Config) {
	if cfg.Anthropic.APIKey != "" {
		cfg.Anthropic.APIKey = "[redacted]"
	}
	if cfg.OpenAI.APIKey != "" {
		cfg.OpenAI.APIKey = "[redacted]"
	}
	if cfg.Voice.APIKey != "" {
		cfg.Voice.APIKey = "[redacted]"
	}
}

func configLoader(path string, log *slog.Logger) (*config.Loader, error) {
	return config.NewLoader(path, config.WithLoaderLogger(log))
}
