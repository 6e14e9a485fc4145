// Command bmi computes body metrics from the command line, keeps the local
// result history and fetches personalized advice.
//
// Usage:
//
//	bmi compute --unit metric --age 30 --gender male --height-cm 175 --weight-kg 70 --record
//	bmi history list
//	bmi history clear
//	bmi advice --unit imperial --age 41 --gender female --height-ft 5 --height-in 6 --weight-lbs 150
//	bmi token --subject ops@prohealth.app
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/config"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// errUsage marks errors caused by bad arguments; they exit with status 2.
var errUsage = errors.New("usage error")

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    log,
		lookup: os.LookupEnv,
		now:    time.Now,
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
	lookup func(string) (string, bool)
	now    func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	err := a.dispatch(ctx, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return errUsage
	}

	switch args[0] {
	case "compute":
		return a.compute(ctx, args[1:])
	case "history":
		return a.history(ctx, args[1:])
	case "advice":
		return a.advice(ctx, args[1:])
	case "token":
		return a.token(args[1:])
	case "--help", "-h", "help":
		a.printUsage()
		return nil
	case "--version", "-v", "version":
		fmt.Fprintf(a.stdout, "bmi %s (built %s)\n", Version, BuildTime)
		return nil
	default:
		a.printUsage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (a *app) config() (config.Config, error) {
	cfg, err := config.FromLookup(a.lookup)
	if err != nil {
		return cfg, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) printUsage() {
	fmt.Fprintf(a.stderr, `bmi %s - body metrics calculator

Usage:
  bmi compute [measurement flags] [--record] [--db PATH] [--json]
  bmi history list [--db PATH] [--json]
  bmi history clear [--db PATH]
  bmi advice [measurement flags] [--json]
  bmi token --subject NAME

Measurement flags:
  --unit metric|imperial   unit system (default metric)
  --age N                  age in years
  --gender male|female
  --height-cm N --weight-kg N                 metric
  --height-ft N --height-in N --weight-lbs N  imperial

Unset measurements use the calculator defaults for the unit system.

Environment:
  HISTORY_SQLITE_PATH    history database (default %s)
  GEMINI_API_KEY         enables remote advice
  ADMIN_JWT_SIGNING_KEY  required by "token"
`, Version, config.DefaultSQLitePath)
}
