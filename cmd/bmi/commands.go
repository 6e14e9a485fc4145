package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/advice/gemini"
	"github.com/prohealth/prohealth/internal/auth"
	"github.com/prohealth/prohealth/internal/bodymetrics"
	"github.com/prohealth/prohealth/internal/database"
	"github.com/prohealth/prohealth/internal/history"
)

// measurementFlags binds the calculator inputs to a flag set. Values not
// given on the command line keep the unit system's defaults.
type measurementFlags struct {
	unit   string
	gender string
	age    int

	heightCm, weightKg                  float64
	heightFeet, heightInches, weightLbs float64
}

func (m *measurementFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.unit, "unit", "metric", "unit system: metric or imperial")
	fs.StringVar(&m.gender, "gender", "", "male or female")
	fs.IntVar(&m.age, "age", 0, "age in years")
	fs.Float64Var(&m.heightCm, "height-cm", 0, "height in centimeters")
	fs.Float64Var(&m.weightKg, "weight-kg", 0, "weight in kilograms")
	fs.Float64Var(&m.heightFeet, "height-ft", 0, "height, feet part")
	fs.Float64Var(&m.heightInches, "height-in", 0, "height, inches part")
	fs.Float64Var(&m.weightLbs, "weight-lbs", 0, "weight in pounds")
}

func (m *measurementFlags) input(fs *flag.FlagSet) (bodymetrics.MeasurementInput, error) {
	unit := bodymetrics.UnitSystem(strings.ToUpper(m.unit))
	if !unit.Valid() {
		return bodymetrics.MeasurementInput{}, fmt.Errorf("%w: --unit must be metric or imperial", errUsage)
	}

	in := bodymetrics.DefaultInput(unit)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gender":
			in.Gender = bodymetrics.Gender(strings.ToUpper(m.gender))
		case "age":
			in.AgeYears = m.age
		case "height-cm":
			in.HeightCm = m.heightCm
		case "weight-kg":
			in.WeightKg = m.weightKg
		case "height-ft":
			in.HeightFeet = m.heightFeet
		case "height-in":
			in.HeightInches = m.heightInches
		case "weight-lbs":
			in.WeightLbs = m.weightLbs
		}
	})
	return in, nil
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

func (a *app) compute(ctx context.Context, args []string) error {
	fs := a.newFlagSet("compute")
	var m measurementFlags
	m.register(fs)
	record := fs.Bool("record", false, "append the result to the local history")
	dbPath := fs.String("db", "", "history database path")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	input, err := m.input(fs)
	if err != nil {
		return err
	}
	result, err := a.calculate(input)
	if err != nil {
		return err
	}

	var entry *history.Entry
	if *record {
		store, closeStore, err := a.openHistory(ctx, *dbPath)
		if err != nil {
			return err
		}
		defer closeStore()

		entry, err = store.Record(ctx, result)
		if err != nil {
			return fmt.Errorf("record history: %w", err)
		}
	}

	if *asJSON {
		out := struct {
			*bodymetrics.Result
			EntryID string `json:"entryId,omitempty"`
		}{Result: result}
		if entry != nil {
			out.EntryID = entry.ID
		}
		return writeJSON(a.stdout, out)
	}

	printResult(a.stdout, result)
	if entry != nil {
		fmt.Fprintf(a.stdout, "Recorded:       %s\n", entry.ID)
	}
	return nil
}

func (a *app) calculate(input bodymetrics.MeasurementInput) (*bodymetrics.Result, error) {
	result, err := bodymetrics.Compute(input, a.now())
	if err != nil {
		var verr *bodymetrics.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Fprintf(a.stderr, "  %s: %s\n", fe.Field, fe.Message)
			}
			return nil, fmt.Errorf("%w: invalid measurements", errUsage)
		}
		return nil, err
	}
	return result, nil
}

func (a *app) history(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: history requires list or clear", errUsage)
	}

	fs := a.newFlagSet("history " + args[0])
	dbPath := fs.String("db", "", "history database path")
	asJSON := fs.Bool("json", false, "print JSON")

	switch args[0] {
	case "list", "clear":
	default:
		return fmt.Errorf("%w: unknown history command %q", errUsage, args[0])
	}
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	store, closeStore, err := a.openHistory(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if args[0] == "clear" {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "History cleared.")
		return nil
	}

	entries := store.Load(ctx)
	if *asJSON {
		return writeJSON(a.stdout, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No history yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.stdout, "%s  BMI %5.1f  %-14s %s\n",
			e.ComputedTime().Format("2006-01-02 15:04"), e.BMI, e.Category, e.UnitSystem)
	}
	return nil
}

func (a *app) advice(ctx context.Context, args []string) error {
	fs := a.newFlagSet("advice")
	var m measurementFlags
	m.register(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	input, err := m.input(fs)
	if err != nil {
		return err
	}
	result, err := a.calculate(input)
	if err != nil {
		return err
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" {
		a.log.Warn().Msg("GEMINI_API_KEY not set - showing general advice")
	}

	svc := advice.NewService(advice.ServiceConfig{
		Generator: gemini.NewClient(gemini.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.AdviceTimeout,
		}),
		Logger:  a.log,
		Timeout: cfg.AdviceTimeout,
	})
	got := svc.RequestAdvice(ctx, advice.RequestFromResult(result, input.AgeYears, input.Gender))

	if *asJSON {
		return writeJSON(a.stdout, struct {
			*advice.Advice
			Source advice.Source `json:"source"`
		}{Advice: got, Source: got.Source})
	}

	printResult(a.stdout, result)
	fmt.Fprintf(a.stdout, "\n%s\n", got.Analysis)
	printTips(a.stdout, "Diet", got.DietaryTips)
	printTips(a.stdout, "Exercise", got.ExerciseTips)
	fmt.Fprintf(a.stdout, "\n\"%s\"\n", got.MotivationalQuote)
	return nil
}

func (a *app) token(args []string) error {
	fs := a.newFlagSet("token")
	subject := fs.String("subject", "", "operator identity recorded in the token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*subject) == "" {
		return fmt.Errorf("%w: --subject is required", errUsage)
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{SigningKey: cfg.AdminSigningKey})
	if err != nil {
		return err
	}

	token, expiresAt, err := tokens.IssueAdminToken(*subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, token)
	fmt.Fprintf(a.stderr, "expires %s\n", expiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}

func (a *app) openHistory(ctx context.Context, path string) (*history.Store, func(), error) {
	if path == "" {
		cfg, err := a.config()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.HistorySQLitePath
	}

	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	storage, err := history.NewSQLiteStorage(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	store := history.NewStore(history.StoreConfig{Storage: storage, Logger: a.log})
	return store, func() { _ = db.Close() }, nil
}

func printResult(w io.Writer, r *bodymetrics.Result) {
	fmt.Fprintf(w, "BMI:            %.1f (%s)\n", r.BMI, r.Category)
	fmt.Fprintf(w, "Ideal weight:   %s\n", r.IdealWeightRange)
	fmt.Fprintf(w, "BMR:            %.0f kcal/day\n", r.BMR)
	fmt.Fprintf(w, "Water intake:   %.1f L/day\n", r.WaterIntakeLiters)
}

func printTips(w io.Writer, title string, tips []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, tip := range tips {
		fmt.Fprintf(w, "  - %s\n", tip)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
