package diagnostic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/position"
)

// Formatter formats diagnostics into different output formats. doc may be nil
// when the source text is not available.
type Formatter interface {
	Format(doc *position.Document, diagnostics []Diagnostic) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodeDiagnostic struct {
	Severity int            `json:"severity"`
	Code     string         `json:"code"`
	Source   string         `json:"source"`
	Message  string         `json:"message"`
	Range    position.Range `json:"range"`
}

func (f *VSCodeFormatter) Format(doc *position.Document, diagnostics []Diagnostic) ([]byte, error) {
	// severity: Error = 1, Warning = 2; lines and characters are 0-based
	result := make([]vscodeDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		sev := 1
		if d.Severity == Warning {
			sev = 2
		}
		result = append(result, vscodeDiagnostic{
			Severity: sev,
			Code:     d.ID,
			Source:   "razor",
			Message:  d.Message,
			Range:    rangeOf(doc, d.Span),
		})
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics: %w", err)
	}
	return out, nil
}

func rangeOf(doc *position.Document, span position.Span) position.Range {
	if doc != nil {
		if r, err := doc.Range(span); err == nil {
			return r
		}
	}
	start := span.Location.Place()
	return position.Range{Start: start, End: position.Place{Line: start.Line, Character: start.Character + span.Length}}
}

// TextFormatter prints one diagnostic per line followed by the offending
// source line and a caret marker, like a compiler would.
type TextFormatter struct {
	Color bool
}

func NewTextFormatter(colorize bool) *TextFormatter {
	return &TextFormatter{Color: colorize}
}

func (f *TextFormatter) Format(doc *position.Document, diagnostics []Diagnostic) ([]byte, error) {
	var buf bytes.Buffer

	sevColor := map[Severity]*color.Color{
		Error:   color.New(color.FgHiRed, color.Bold),
		Warning: color.New(color.FgHiYellow, color.Bold),
	}

	for _, d := range diagnostics {
		sev := d.Severity.String()
		loc := d.Span.Location.String()
		if f.Color {
			if c, ok := sevColor[d.Severity]; ok {
				sev = c.Sprint(sev)
			}
			loc = color.New(color.Bold).Sprint(loc)
		}
		fmt.Fprintf(&buf, "%s: %s %s: %s\n", loc, sev, d.ID, d.Message)

		if doc == nil || d.Span.IsUndefined() {
			continue
		}
		line := doc.Line(d.Span.LineIndex)
		if line == "" {
			continue
		}
		pad, width, err := caretColumns(line, d.Span.CharacterIndex, d.Span.Length)
		if err != nil {
			return nil, err
		}
		marker := strings.Repeat(" ", pad) + "^" + strings.Repeat("~", max(width-1, 0))
		if f.Color {
			marker = color.New(color.FgGreen).Sprint(marker)
		}
		fmt.Fprintf(&buf, "    %s\n    %s\n", line, marker)
	}

	return buf.Bytes(), nil
}

// caretColumns converts a byte column and length into grapheme columns so the
// marker lines up under multi-byte text.
func caretColumns(line string, col, length int) (pad, width int, err error) {
	col = min(col, len(line))
	end := min(col+length, len(line))

	pad, err = textseg.TokenCount([]byte(line[:col]), textseg.ScanGraphemeClusters)
	if err != nil {
		return 0, 0, errors.Errorf("segmenting diagnostic line: %w", err)
	}
	width, err = textseg.TokenCount([]byte(line[col:end]), textseg.ScanGraphemeClusters)
	if err != nil {
		return 0, 0, errors.Errorf("segmenting diagnostic span: %w", err)
	}
	return pad, max(width, 1), nil
}
