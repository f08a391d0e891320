package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"

	"github.com/hay-kot/criterio"
	"golang.org/x/text/language"

	"github.com/hay-kot/huddle/internal/core/validate"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

var transportKinds = []string{TransportJSONFile, TransportRedis, TransportNATS, TransportWebSocket}

// Validate checks that the configuration is usable. Every problem is
// collected into criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("data directory cannot be empty"))
	}

	if c.Viewer != "" {
		if err := validate.ViewerID(c.Viewer); err != nil {
			errs = errs.Append("viewer", err)
		}
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errs = errs.Append("locale", fmt.Errorf("invalid BCP 47 tag %q: %w", c.Locale, err))
	}

	if _, err := c.Location(); err != nil {
		errs = errs.Append("timezone", err)
	}

	if err := validate.RoomName(c.Room.Name); err != nil {
		errs = errs.Append("room.name", err)
	}

	errs = c.validateTransport(errs)

	if c.Relay.Addr == "" {
		errs = errs.Append("relay.addr", fmt.Errorf("address cannot be empty"))
	}

	return errs.ToError()
}

func (c *Config) validateTransport(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	t := c.Transport

	if !slices.Contains(transportKinds, t.Kind) {
		return errs.Append("transport.kind", fmt.Errorf("unknown transport %q, want one of %v", t.Kind, transportKinds))
	}

	switch t.Kind {
	case TransportJSONFile:
		if t.JSONFile.PollInterval < 0 {
			errs = errs.Append("transport.jsonfile.poll_interval", fmt.Errorf("must not be negative"))
		}
	case TransportRedis:
		if t.Redis.Addr == "" {
			errs = errs.Append("transport.redis.addr", fmt.Errorf("address is required"))
		}
		if t.Redis.DB < 0 {
			errs = errs.Append("transport.redis.db", fmt.Errorf("must not be negative"))
		}
	case TransportNATS:
		if err := checkURL(t.NATS.URL, "nats", "tls", "ws", "wss"); err != nil {
			errs = errs.Append("transport.nats.url", err)
		}
		if t.NATS.Bucket == "" {
			errs = errs.Append("transport.nats.bucket", fmt.Errorf("bucket is required"))
		}
	case TransportWebSocket:
		if err := checkURL(t.WebSocket.URL, "ws", "wss"); err != nil {
			errs = errs.Append("transport.websocket.url", err)
		}
	}

	return errs
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("url %q must use one of the schemes %v", raw, schemes)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this also checks file access.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.Transport.Kind == TransportJSONFile {
		dir := c.RoomsDir()
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			errs = errs.Append("transport.jsonfile.dir", fmt.Errorf("%s exists but is not a directory", dir))
		}
	}

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues with the configuration.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Viewer == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Identity",
			Item:     "viewer",
			Message:  "no viewer configured; you will be prompted, or no message will be marked as your own",
		})
	}

	if c.Transport.Kind == TransportJSONFile {
		if _, err := os.Stat(c.RoomsDir()); os.IsNotExist(err) {
			warnings = append(warnings, ValidationWarning{
				Category: "Transport",
				Item:     "transport.jsonfile.dir",
				Message:  fmt.Sprintf("%s does not exist yet and will be created", c.RoomsDir()),
			})
		}
	}

	return warnings
}
