package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/printer"
)

type ImportCmd struct {
	flags *Flags
}

// NewImportCmd creates the fixture loader.
func NewImportCmd(flags *Flags) *ImportCmd {
	return &ImportCmd{flags: flags}
}

// Register adds `huddle import` to the application.
func (cmd *ImportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "import",
		Usage:     "Load message records into the configured store",
		UsageText: "huddle import <file|->",
		Description: `Reads a JSON array of message records, or an object with a "messages"
array, and upserts them by id. Records are stored as given so malformed ones
can be used to exercise the view. Not available for the websocket transport.`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ImportCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument, use - for stdin")
	}

	var (
		data []byte
		err  error
	)
	if path := c.Args().First(); path == "-" {
		data, err = io.ReadAll(c.Root().Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	records, err := parseRecords(data)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Transport.Kind, err)
	}
	defer func() { _ = b.Close() }()

	if b.Importer == nil {
		return fmt.Errorf("the %s transport is read-only", cfg.Transport.Kind)
	}

	n, err := b.Importer.Import(ctx, records)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	printer.Ctx(ctx).Successf("imported %d %s into %s", n, plural(n, "record"), cfg.Room.Name)
	return nil
}

// parseRecords accepts `[...]` or `{"messages": [...]}`.
func parseRecords(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no records: input is empty")
	}

	var records []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse records: %w", err)
		}
		return records, nil
	}

	var doc struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	if doc.Messages == nil {
		return nil, errors.New(`no records: expected an array or an object with "messages"`)
	}
	return doc.Messages, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
