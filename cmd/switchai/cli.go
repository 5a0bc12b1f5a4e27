package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/leofalp/switchai/core/client"
	"github.com/leofalp/switchai/core/client/middleware"
	"github.com/leofalp/switchai/core/cost"
	"github.com/leofalp/switchai/internal/config"
	"github.com/leofalp/switchai/providers/ai"
)

const usage = `switchai sends requests to any supported AI provider through one interface.

Usage:
  switchai <command> [flags] [arguments]

Commands:
  chat        Send a chat prompt
  embed       Embed texts or images
  transcribe  Transcribe an audio file
  image       Generate images from a prompt
  providers   List the registered providers

Common flags:
  --config string     Path to YAML configuration file (default $SWITCHAI_CONFIG)
  --provider string   Provider name, overrides the configured default
  --model string      Model name, overrides the configured default
  --usage             Print token usage to stderr when done
  --verbose           Log every provider call

Run 'switchai <command> -h' for command flags.`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return printUsage(stdout)
	}

	switch args[0] {
	case "chat":
		return runChat(ctx, args[1:], stdout, stderr)
	case "embed":
		return runEmbed(ctx, args[1:], stdout, stderr)
	case "transcribe":
		return runTranscribe(ctx, args[1:], stdout, stderr)
	case "image":
		return runImage(ctx, args[1:], stdout, stderr)
	case "providers":
		for _, name := range client.Providers() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "help", "-h", "--help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage(stdout io.Writer) error {
	fmt.Fprintln(stdout, strings.TrimSpace(usage))
	return nil
}

// commonFlags are shared by every request command.
type commonFlags struct {
	configPath string
	provider   string
	model      string
	usage      bool
	verbose    bool

	// price is resolved by newClient from the configured pricing table.
	price *cost.ModelCost
}

func newFlagSet(name, commandUsage string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, commandUsage)
	}

	common := &commonFlags{}
	fs.StringVar(&common.configPath, "config", os.Getenv("SWITCHAI_CONFIG"), "path to configuration file")
	fs.StringVar(&common.provider, "provider", "", "provider name")
	fs.StringVar(&common.model, "model", "", "model name")
	fs.BoolVar(&common.usage, "usage", false, "print token usage to stderr")
	fs.BoolVar(&common.verbose, "verbose", false, "log every provider call")
	return fs, common
}

// parseFlags parses args and reports whether the command should stop, which
// happens after -h.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return true, fmt.Errorf("parse %s flags: %w", fs.Name(), err)
	}
	return false, nil
}

// newClient resolves the provider and model of command from the flags and the
// configuration file, then builds the client.
func (f *commonFlags) newClient(command string, stderr io.Writer) (*client.Client, error) {
	cfg := config.Config{}
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	target := cfg.Target(command)
	if f.provider != "" && !strings.EqualFold(f.provider, target.Provider) {
		target = config.Target{Provider: f.provider}
	}
	if f.model != "" {
		target.Model = f.model
	}
	if target.Provider == "" {
		return nil, fmt.Errorf("%s: no provider, pass --provider or set defaults.%s.provider in the configuration", command, command)
	}

	logger, err := newLogger(stderr, cfg.LogLevel, f.verbose)
	if err != nil {
		return nil, err
	}

	settings := cfg.Provider(target.Provider)
	opts := []func(*client.ClientOptions){
		client.WithLogger(logger),
		client.WithAPIKey(settings.ResolveAPIKey()),
		client.WithBaseURL(settings.BaseURL),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, client.WithMiddleware(middleware.NewTimeoutMiddleware(cfg.Timeout)))
	}
	if f.verbose {
		opts = append(opts, client.WithMiddleware(middleware.NewLoggingMiddleware(logger, middleware.LogLevelVerbose)))
	}
	if price, ok := cfg.Pricing.Lookup(target.Model); ok && target.Model != "" {
		f.price = &price
	}

	return client.New(target.Provider, target.Model, opts...)
}

func newLogger(stderr io.Writer, level string, verbose bool) (*slog.Logger, error) {
	var handlerLevel slog.Level
	if level != "" {
		if err := handlerLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	if verbose {
		handlerLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: handlerLevel})), nil
}

// withOverview attaches an overview to ctx when usage reporting is on.
func (f *commonFlags) withOverview(ctx context.Context) (context.Context, *ai.Overview) {
	if !f.usage {
		return ctx, nil
	}
	overview := &ai.Overview{}
	return overview.ToContext(ctx), overview
}

// printOverview reports the usage gathered in overview, followed by its
// estimated cost when the model has a configured price.
func (f *commonFlags) printOverview(stderr io.Writer, overview *ai.Overview) error {
	if overview == nil {
		return nil
	}
	summary := overview.Summary()
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	fmt.Fprintf(stderr, "usage: %s\n", encoded)

	if f.price == nil {
		return nil
	}
	encoded, err = json.Marshal(cost.Estimate(summary, *f.price))
	if err != nil {
		return fmt.Errorf("encode cost: %w", err)
	}
	fmt.Fprintf(stderr, "cost: %s\n", encoded)
	return nil
}

func printWarnings(stderr io.Writer, warnings []ai.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
