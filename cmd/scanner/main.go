// Package main runs the door scanner: it reads camera frames, decodes ticket QR
// codes and checks each one against the API's entry validation endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventide/backend/internal/scanner"
)

// errDenied makes a single-shot scan exit non-zero when entry is refused.
var errDenied = errors.New("entry denied")

func main() {
	err := run()
	if errors.Is(err, errDenied) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		apiURL     string
		eventID    string
		framesDir  string
		token      string
		interval   time.Duration
		display    time.Duration
		loop       bool
		continuous bool
		verbose    bool
	)
	flagSet := pflag.NewFlagSet("scanner", pflag.ContinueOnError)
	flagSet.StringVar(&apiURL, "api", "http://localhost:8080/api/v1", "API base URL")
	flagSet.StringVar(&eventID, "event", "", "event id to admit attendees for (required)")
	flagSet.StringVar(&framesDir, "frames", "", "directory of PNG/JPEG/GIF frames standing in for the camera (required)")
	flagSet.StringVar(&token, "token", os.Getenv("SCANNER_TOKEN"), "organizer bearer token, required when the API runs with single-use entry")
	flagSet.DurationVar(&interval, "interval", 200*time.Millisecond, "delay between camera frames")
	flagSet.DurationVar(&display, "display", scanner.DefaultResultDisplay, "how long a result stays on screen")
	flagSet.BoolVar(&loop, "loop", false, "replay the frames directory when exhausted")
	flagSet.BoolVar(&continuous, "continuous", false, "start a new session after each result, resuming at the next frame")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log state transitions")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if eventID == "" || framesDir == "" {
		printHelp(flagSet)
		return errors.New("--event and --frames are required")
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	camera := scanner.NewExclusiveCamera(&scanner.DirCamera{Dir: framesDir, Interval: interval, Loop: loop})
	session := scanner.NewSession(camera, scanner.NewQRDecoder(), scanner.NewAPIClient(apiURL, token), logger)
	session.ResultDisplay = display
	session.OnTransition(func(tr scanner.Transition) {
		if tr.Status != "" {
			fmt.Printf("[%s] %s\n", tr.To, tr.Status)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		out, err := session.Run(ctx, eventID)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if continuous && errors.Is(err, scanner.ErrFramesExhausted) {
			fmt.Println("no more frames")
			return nil
		}
		if err != nil {
			return err
		}
		printOutcome(out)
		if !continuous {
			if !out.Success {
				return errDenied
			}
			return nil
		}
	}
}

func printOutcome(out scanner.Outcome) {
	mark := "DENIED"
	if out.Success {
		mark = "ADMIT"
	}
	if out.Payload != nil {
		fmt.Printf("%s  %s (%s): %s\n", mark, out.Payload.UserName, out.Payload.UserID, out.Message)
		return
	}
	fmt.Printf("%s  %s\n", mark, out.Message)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Door scanner: admit attendees by scanning their ticket QR codes.

Frames are read from a directory in name order, standing in for a camera.
Each session scans until a code is found, validates it against the API and
shows the result for --display before returning to idle.

Usage:
  scanner --event <id> --frames <dir> [flags]

Flags:
%s`, flagSet.FlagUsages())
}

func newLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}
