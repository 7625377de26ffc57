// Command autoscribe-tui runs a voice-driven exam attempt in the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"autoscribe/internal/bootstrap"
	"autoscribe/internal/ui/tui"
)

type options struct {
	logPath string
	noColor bool
	export  bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("autoscribe-tui", flag.ContinueOnError)
	fs.StringVar(&opts.logPath, "log", "", "Write logs to this file (default: discard)")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colors")
	fs.BoolVar(&opts.export, "export", false, "Print the submitted attempt as JSON on exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		slog.Error("autoscribe failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logOut := io.Discard
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	sink := tui.NewSink(256)
	services, err := bootstrap.Build(ctx, sink, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			services.Logger.Warn("cleanup failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		return services.Controller.Run(runCtx)
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(runCtx, nil, os.Stdout, sink, services.Controller, tui.Options{
			ExamName: services.Exam.Name,
			NoColor:  opts.noColor,
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if !services.Attempt.Submitted() {
		fmt.Fprintf(os.Stdout, "Attempt %s was not submitted.\n", services.Attempt.ID())
		return nil
	}
	fmt.Fprintf(os.Stdout, "Attempt %s submitted with %d answers.\n", services.Attempt.ID(), len(services.Attempt.AnswersByIndex()))
	if !opts.export {
		return nil
	}
	record, err := services.Store.LoadAttempt(context.Background(), services.Attempt.ID())
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}
