package tui

import (
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/huddle/internal/core/validate"
)

// PromptViewer asks who is reading. It needs an interactive terminal.
func PromptViewer(room string) (string, error) {
	var viewer string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Who are you?").
				Description("Your messages in #" + room + " are shown on the right.").
				Placeholder("alice@example.com").
				Value(&viewer).
				Validate(func(s string) error {
					return validate.ViewerID(strings.TrimSpace(s))
				}),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(viewer), nil
}
