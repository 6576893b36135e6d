package cli

import (
	"fmt"
	"io"

	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/fatih/color"
)

// printer writes notifications and progress lines for the non-interactive commands.
type printer struct {
	out    io.Writer
	ok     *color.Color
	warn   *color.Color
	danger *color.Color
	info   *color.Color
	muted  *color.Color
	bold   *color.Color
}

func newPrinter(out io.Writer, useColor bool) *printer {
	p := &printer{
		out:    out,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		danger: color.New(color.FgRed),
		info:   color.New(color.FgCyan),
		muted:  color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.warn, p.danger, p.info, p.muted, p.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) severity(s notify.Severity) (*color.Color, string) {
	switch s {
	case notify.SeveritySuccess:
		return p.ok, "ok"
	case notify.SeverityError:
		return p.danger, "error"
	case notify.SeverityWarning:
		return p.warn, "warn"
	default:
		return p.info, "info"
	}
}

// Notification prints one notification; it doubles as a bus handler.
func (p *printer) Notification(n notify.Notification) {
	c, label := p.severity(n.Severity)
	c.Fprintf(p.out, "[%s] ", label)
	fmt.Fprintln(p.out, n.Message)
}

func (p *printer) Notifications(ns []notify.Notification) {
	for _, n := range ns {
		p.Notification(n)
	}
}

func (p *printer) Step(format string, args ...any) {
	p.muted.Fprintf(p.out, "  "+format+"\n", args...)
}

func (p *printer) Title(format string, args ...any) {
	p.bold.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) OK(format string, args ...any) {
	p.ok.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Muted(format string, args ...any) {
	p.muted.Fprintf(p.out, format+"\n", args...)
}
