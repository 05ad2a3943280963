package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	run262 "github.com/ecmatools/run262"
	"github.com/ecmatools/run262/exitcodes"
	"github.com/ecmatools/run262/flags"
	"github.com/ecmatools/run262/results"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "run262"
	app.Usage = "Batched concurrent test262 orchestrator"
	app.Description = "run262 drives an ECMAScript engine executor through the test262 conformance corpus"
	app.Flags = flags.Flags
	app.Action = run
	app.Commands = []*cli.Command{diffCommand()}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Map typed errors onto the documented exit codes.
			if run262.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if run262.IsRegressionsError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Regressions))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	if err := flags.CheckRequired(ctx); err != nil {
		return run262.NewRuntimeError(err)
	}
	logger, err := setupLogging(ctx)
	if err != nil {
		return run262.NewRuntimeError(err)
	}

	cfg, err := run262.NewConfig(ctx, logger)
	if err != nil {
		return run262.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	svc, err := run262.NewService(cfg)
	if err != nil {
		return run262.NewRuntimeError(err)
	}
	return svc.Run(ctx.Context, os.Stdout)
}

func diffCommand() *cli.Command {
	oldFlag := &cli.StringFlag{
		Name:     "old",
		Aliases:  []string{"o"},
		Required: true,
		Usage:    "Path to the old per-file results document",
	}
	newFlag := &cli.StringFlag{
		Name:     "new",
		Aliases:  []string{"n"},
		Required: true,
		Usage:    "Path to the new per-file results document",
	}
	regressionsFlag := &cli.BoolFlag{
		Name:    "regressions",
		Aliases: []string{"r"},
		Usage:   "Only show regressions, and exit non-zero when any are found",
	}
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare two per-file result documents",
		Flags: []cli.Flag{oldFlag, newFlag, regressionsFlag},
		Action: func(ctx *cli.Context) error {
			diff, err := results.CompareFiles(ctx.String(oldFlag.Name), ctx.String(newFlag.Name))
			if err != nil {
				return run262.NewRuntimeError(err)
			}
			if ctx.Bool(regressionsFlag.Name) {
				diff.WriteRegressions(os.Stdout)
				if regressions := diff.Regressions(); len(regressions) > 0 {
					return run262.NewRegressionsError(len(regressions))
				}
				return nil
			}
			diff.WriteFull(os.Stdout)
			return nil
		},
	}
}

func setupLogging(ctx *cli.Context) (log.Logger, error) {
	level, err := levelFromString(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, err
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, false)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}

func levelFromString(s string) (slog.Level, error) {
	switch s {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
