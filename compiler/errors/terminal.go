package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	severityColors = map[Severity]*color.Color{
		Info:    color.New(color.FgCyan),
		Warning: color.New(color.FgYellow, color.Bold),
		Error:   color.New(color.FgRed, color.Bold),
		Fatal:   color.New(color.FgRed, color.Bold),
	}
	locationColor = color.New(color.FgCyan)
	codeColor     = color.New(color.Faint)
)

// FormatForTerminal formats a diagnostic for terminal output with colors
func (e CompileError) FormatForTerminal() string {
	var sb strings.Builder

	sev := severityColors[e.Severity]
	if sev == nil {
		sev = severityColors[Error]
	}

	sb.WriteString(sev.Sprint(e.Severity.String()))
	sb.WriteString(codeColor.Sprintf("[%s]", e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("  %s %s:%d:%d\n",
			locationColor.Sprint("-->"),
			e.Location.File,
			e.Location.Line,
			e.Location.Column))
	}

	return sb.String()
}

// FormatListForTerminal renders every diagnostic in the list followed by a
// one-line summary
func FormatListForTerminal(l *List) string {
	var sb strings.Builder

	for _, e := range l.Diagnostics {
		sb.WriteString(e.FormatForTerminal())
	}

	errs := len(l.Errors())
	warns := len(l.Warnings())
	if errs > 0 {
		sb.WriteString(severityColors[Error].Sprintf("\n%d error(s)", errs))
		if warns > 0 {
			sb.WriteString(severityColors[Warning].Sprintf(", %d warning(s)", warns))
		}
		sb.WriteString("\n")
	} else if warns > 0 {
		sb.WriteString(severityColors[Warning].Sprintf("\n%d warning(s)\n", warns))
	}

	return sb.String()
}
