package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/commands/doctor"
	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/printer"
)

type DoctorCmd struct {
	flags   *Flags
	format  string
	fix     bool
	timeout time.Duration
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your huddle setup",
		UsageText:   "huddle doctor [options]",
		Description: "Checks the configuration, reads one snapshot from the room store and looks for stale files left by the jsonfile store.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       formatText,
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "remove stale files",
				Destination: &cmd.fix,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "how long to wait for the room store",
				Value:       5 * time.Second,
				Destination: &cmd.timeout,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	checks := []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
	}

	if cfg != nil {
		b, err := openBackend(ctx, cfg, log.Logger)
		if err != nil {
			checks = append(checks, failedCheck{name: "Room Store", label: cfg.Transport.Kind, err: err})
		} else {
			defer func() { _ = b.Close() }()
			checks = append(checks, doctor.NewTransportCheck(b.Transport, cfg.Transport.Kind, cfg.Room.Name).WithTimeout(cmd.timeout))
		}

		if cfg.Transport.Kind == config.TransportJSONFile {
			checks = append(checks, doctor.NewStaleFilesCheck(cfg.RoomsDir(), cmd.fix))
		}
	}

	results := doctor.RunAll(ctx, checks)

	switch cmd.format {
	case formatJSON:
		return cmd.outputJSON(c, results)
	case formatText:
		return cmd.outputText(ctx, results)
	}
	return fmt.Errorf("unknown format %q (want text or json)", cmd.format)
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	counts := doctor.Tally(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary doctor.Counts   `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: counts.Healthy(),
		Summary: counts,
		Checks:  results,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !counts.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)

	for _, result := range results {
		p.Section(result.Name + " [" + result.Worst().String() + "]")
		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			default:
				p.FailItem(item.Label, item.Detail)
			}
		}
		p.Printf("")
	}

	counts := doctor.Tally(results)
	p.Printf("%d passed, %d %s, %d failed", counts.Passed, counts.Warned, plural(counts.Warned, "warning"), counts.Failed)

	if n := counts.Fixable; n > 0 {
		p.Infof("%d %s can be fixed with --fix", n, plural(n, "issue"))
	}

	if !counts.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

// failedCheck reports a store that could not be opened.
type failedCheck struct {
	name  string
	label string
	err   error
}

func (f failedCheck) Name() string { return f.name }

func (f failedCheck) Run(context.Context) doctor.Result {
	return doctor.Result{Name: f.name, Items: []doctor.CheckItem{{Label: f.label, Status: doctor.StatusFail, Detail: f.err.Error()}}}
}
