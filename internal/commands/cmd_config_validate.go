package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/printer"
)

type ConfigCmd struct {
	flags  *Flags
	format string
}

// NewConfigCmd creates the `config` command group.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds `huddle config validate` and `huddle config show`.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate the configuration",
				UsageText:   "huddle config validate [--format text|json]",
				Description: "Checks locale, timezone, room name, transport settings and the paths huddle reads from.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       formatText,
						Destination: &cmd.format,
					},
				},
				Action: cmd.validate,
			},
			{
				Name:        "show",
				Usage:       "Print the effective configuration as YAML",
				UsageText:   "huddle config show",
				Description: "Prints the configuration after defaults, environment and flags were applied. Secrets are masked.",
				Action:      cmd.show,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) validate(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	err := cfg.ValidateDeep(cmd.flags.ConfigPath)
	report := validationReport{
		Path:     cmd.flags.ConfigPath,
		Valid:    err == nil,
		Warnings: cfg.Warnings(),
	}
	for _, fe := range fieldErrors(err) {
		report.Errors = append(report.Errors, fieldProblem{Field: fe.Field, Message: fe.Err.Error()})
	}

	switch cmd.format {
	case formatJSON:
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Valid {
			return cli.Exit("", 1)
		}
		return nil
	case formatText:
		return report.print(printer.Ctx(ctx))
	}
	return fmt.Errorf("unknown format %q (want text or json)", cmd.format)
}

func (cmd *ConfigCmd) show(_ context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	masked := *cfg
	if masked.Transport.Redis.Password != "" {
		masked.Transport.Redis.Password = "********"
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(masked); err != nil {
		return err
	}
	return enc.Close()
}

type fieldProblem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationReport struct {
	Path     string                     `json:"path"`
	Valid    bool                       `json:"valid"`
	Errors   []fieldProblem             `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (r validationReport) print(p *printer.Printer) error {
	source := r.Path
	if _, err := os.Stat(r.Path); r.Path == "" || err != nil {
		source = "defaults (no config file)"
	}
	p.Section("Configuration")
	p.Printf("  %s", source)
	p.Printf("")

	for _, e := range r.Errors {
		label := e.Field
		if label == "" {
			label = "config"
		}
		p.FailItem(label, e.Message)
	}
	for _, w := range r.Warnings {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		p.WarnItem(label, w.Message)
	}
	if len(r.Errors)+len(r.Warnings) > 0 {
		p.Printf("")
	}

	if r.Valid {
		if n := len(r.Warnings); n > 0 {
			p.Successf("Configuration is valid with %d %s", n, plural(n, "warning"))
		} else {
			p.Successf("Configuration is valid")
		}
		return nil
	}

	p.Errorf("%d %s, %d %s", len(r.Errors), plural(len(r.Errors), "error"), len(r.Warnings), plural(len(r.Warnings), "warning"))
	return cli.Exit("", 1)
}

// fieldErrors flattens err into field errors. Errors that are not
// criterio.FieldErrors become a single entry without a field.
func fieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return criterio.FieldErrors{{Err: err}}
}
