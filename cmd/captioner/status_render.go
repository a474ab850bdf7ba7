package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind is the outcome shown in brackets after an asset or check name.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// nameWidth pads asset paths and check names so outcomes line up.
const nameWidth = 24

var statusStyles = map[statusKind]struct{ tag, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) String() string {
	if style, ok := statusStyles[k]; ok {
		return style.tag
	}
	return statusStyles[statusInfo].tag
}

func (k statusKind) color() string {
	return statusStyles[k].color
}

// passKind maps a check outcome to a status kind. Optional failures warn.
func passKind(passed, optional bool) statusKind {
	switch {
	case passed:
		return statusOK
	case optional:
		return statusWarn
	default:
		return statusError
	}
}

// statusPrinter writes the human-readable reports of transcribe, validate and
// check. Colors are used only when the destination is a terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, color: shouldColorize(out)}
}

func (p *statusPrinter) paint(color, text string) string {
	if !p.color || color == "" {
		return text
	}
	return color + text + ansiReset
}

// result prints "  name:   [KIND] message".
func (p *statusPrinter) result(name string, kind statusKind, message string) {
	fmt.Fprintln(p.out, p.paint(kind.color(), formatResult(name, kind, message)))
}

// detail prints an indented "label value" pair under the previous result.
func (p *statusPrinter) detail(label, value string) {
	fmt.Fprintf(p.out, "    %-*s %s\n", nameWidth-2, label, value)
}

// item prints an indented bullet under the previous result.
func (p *statusPrinter) item(text string) {
	fmt.Fprintf(p.out, "    - %s\n", text)
}

func (p *statusPrinter) section(title string) {
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(p.out, p.paint(ansiBlue, heading))
	fmt.Fprintln(p.out, p.paint(ansiBlue, strings.Repeat("-", len(heading))))
}

func formatResult(name string, kind statusKind, message string) string {
	line := fmt.Sprintf("  %-*s [%s]", nameWidth, name+":", kind)
	if message != "" {
		line += " " + message
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
