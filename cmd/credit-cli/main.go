package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/protomem/credit-bank/internal/client"
	"github.com/protomem/credit-bank/internal/env"
	"github.com/protomem/credit-bank/internal/version"
)

var (
	_cfgFile     = flag.String("cfg", "", "path to config file")
	_apiURL      = flag.String("api", "", "API base url (default $CREDIT_API_URL or http://localhost:8080)")
	_tokenFile   = flag.String("token", "", "path to the token file (default $CREDIT_TOKEN_FILE or ./auth_token)")
	_showVersion = flag.Bool("version", false, "display version and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if *_showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	if *_cfgFile != "" {
		if err := env.Load(*_cfgFile); err != nil {
			return err
		}
	}

	apiURL := *_apiURL
	if apiURL == "" {
		apiURL = env.GetString("CREDIT_API_URL", "http://localhost:8080")
	}

	tokenFile := *_tokenFile
	if tokenFile == "" {
		tokenFile = env.GetString("CREDIT_TOKEN_FILE", "auth_token")
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return nil
	}

	cmd, ok := lookupCommand(args)
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	session, err := client.NewSession(apiURL, client.NewFileTokenStore(filepath.Clean(tokenFile)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := cmd.run(ctx, session, args[len(cmd.path):])
	if err != nil {
		return err
	}

	return printResult(result)
}

func printResult(result any) error {
	if result == nil {
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: credit-cli [flags] <command> [command flags]\n\ncommands:\n")
	for _, cmd := range _commands {
		fmt.Fprintf(out, "  %-20s %s\n", cmd.name(), cmd.summary)
	}
	fmt.Fprintf(out, "\nflags:\n")
	flag.PrintDefaults()
}
