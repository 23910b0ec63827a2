package diag

import (
	"fmt"
	"io"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// Printer writes diagnostics in "file:line:col: severity: msg" form.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter returns a printer writing to w. With color set, severities
// are highlighted with ANSI escapes.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) colorize(s, c string) string {
	if !p.color {
		return s
	}
	return c + s + colorReset
}

// Print writes one diagnostic.
func (p *Printer) Print(d Diagnostic) {
	sev := d.Severity.String()
	if d.Severity == Error {
		sev = p.colorize(sev, colorRed)
	} else {
		sev = p.colorize(sev, colorYellow)
	}
	fmt.Fprintf(p.w, "%s: %s: %s\n", p.colorize(d.Pos.String(), colorBold), sev, d.Msg)
}

// PrintAll writes every diagnostic in l in position order.
func (p *Printer) PrintAll(l *List) {
	for _, d := range l.Sorted() {
		p.Print(d)
	}
}

// PrintFrom writes the diagnostics added to l after the first n, in report
// order.
func (p *Printer) PrintFrom(l *List, n int) {
	items := l.Items()
	for i := n; i < len(items); i++ {
		p.Print(items[i])
	}
}

// Summary writes the error and warning counts. Nothing is written when l
// is empty.
func (p *Printer) Summary(l *List) {
	if l.Len() == 0 {
		return
	}
	fmt.Fprintf(p.w, "%s, %s\n",
		plural(l.ErrorCount(), "error"),
		plural(l.WarningCount(), "warning"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
