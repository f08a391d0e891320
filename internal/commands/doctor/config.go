package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/huddle/internal/core/config"
)

// ConfigCheck reports validation errors and warnings for the loaded config.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string { return "Configuration" }

func (c *ConfigCheck) Run(context.Context) Result {
	result := Result{Name: c.Name()}

	if c.cfg == nil {
		result.add("config", StatusFail, "configuration not loaded")
		return result
	}

	err := c.cfg.ValidateDeep(c.path)
	warnings := c.cfg.Warnings()

	if err == nil {
		result.add("config", StatusPass, "room "+c.cfg.Room.Name+" via "+c.cfg.Transport.Kind)
	}

	var fieldErrs criterio.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			label := fe.Field
			if label == "" {
				label = "config"
			}
			result.add(label, StatusFail, fe.Err.Error())
		}
	default:
		result.add("config", StatusFail, err.Error())
	}

	for _, w := range warnings {
		label := w.Item
		if label == "" {
			label = w.Category
		}
		result.add(label, StatusWarn, w.Message)
	}

	return result
}
