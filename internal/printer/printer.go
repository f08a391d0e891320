// Package printer writes colored status lines and error boxes for CLI
// commands.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/huddle/internal/styles"
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
)

type ctxKey struct{}

// Printer handles formatted output with colors and styles.
type Printer struct {
	writer   io.Writer
	renderer *lipgloss.Renderer
}

// New creates a Printer that writes to w. Colors follow the capabilities of
// w when it is a terminal and are stripped otherwise.
func New(w io.Writer) *Printer {
	return &Printer{
		writer:   w,
		renderer: lipgloss.NewRenderer(w),
	}
}

// NewContext returns a context with the printer attached.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

func (p *Printer) style(s lipgloss.Style) lipgloss.Style {
	return s.Renderer(p.renderer)
}

func (p *Printer) line(s string) {
	_, _ = io.WriteString(p.writer, s+"\n")
}

// FatalError prints an error box. It does not exit.
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		p.printValidationErrors(err, fieldErrs)
		return
	}

	red := p.style(styles.ErrorStyle)
	p.line(red.Render("╭ Error"))
	p.line(red.Render("│") + " " + p.style(styles.MutedStyle).Render(err.Error()))
	p.line(red.Render("╵"))
}

// printValidationErrors lists each field error under the wrapping context,
// e.g. "load config: invalid config".
func (p *Printer) printValidationErrors(wrapped error, fieldErrs criterio.FieldErrors) {
	red := p.style(styles.ErrorStyle)
	muted := p.style(styles.MutedStyle)

	errContext := ""
	if idx := strings.Index(wrapped.Error(), fieldErrs.Error()); idx > 0 {
		errContext = strings.TrimSuffix(wrapped.Error()[:idx], ": ")
	}

	p.line(red.Render("╭ Validation Error"))
	if errContext != "" {
		p.line(red.Render("│") + " " + muted.Render(errContext))
		p.line(red.Render("│"))
	}

	for _, fe := range fieldErrs {
		line := red.Render("│") + " " + red.Render(Cross) + " "
		if fe.Field != "" {
			line += muted.Render(fe.Field + ": ")
		}
		p.line(line + fe.Err.Error())
	}

	p.line(red.Render("╵"))
}

// Errorf prints an error message in red.
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.style(styles.ErrorStyle).Render(Cross + " " + fmt.Sprintf(format, args...)))
}

// Successf prints a success message in green.
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.style(styles.SuccessStyle).Render(Check + " " + fmt.Sprintf(format, args...)))
}

// Infof prints an info message in gray.
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.style(styles.MutedStyle).Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Warnf prints a warning message in yellow.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.style(styles.WarnStyle).Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Printf prints a plain message.
func (p *Printer) Printf(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Section prints a bold underlined header.
func (p *Printer) Section(title string) {
	p.line(p.style(styles.SectionStyle).Render(title))
}

// CheckItem prints an indented item with a green checkmark.
func (p *Printer) CheckItem(label, detail string) {
	p.item(styles.SuccessStyle, Check, label, detail)
}

// WarnItem prints an indented item with a yellow dot.
func (p *Printer) WarnItem(label, detail string) {
	p.item(styles.WarnStyle, Dot, label, detail)
}

// FailItem prints an indented item with a red cross.
func (p *Printer) FailItem(label, detail string) {
	p.item(styles.ErrorStyle, Cross, label, detail)
}

func (p *Printer) item(s lipgloss.Style, symbol, label, detail string) {
	line := "  " + p.style(s).Render(symbol) + " " + label
	if detail != "" {
		line += ": " + detail
	}
	p.line(line)
}
