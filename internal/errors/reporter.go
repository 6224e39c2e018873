package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"spek/internal/ast"
)

// CompilerError is a structured diagnostic produced by name resolution
// (internal/semantic); participle's own parse errors are reported
// separately since they already carry caret-formatting logic in
// grammar.ParseString's caller.
type CompilerError struct {
	Code    string
	Message string
	Pos     ast.Position
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Reporter renders CompilerErrors against their originating source the
// way the teacher's caret-style parse error printer does.
type Reporter struct {
	source string
	lines  []string
}

func NewReporter(source string) *Reporter {
	return &Reporter{source: source, lines: strings.Split(source, "\n")}
}

func (r *Reporter) Report(err *CompilerError) {
	color.Red("error[%s]: %s", err.Code, err.Message)
	if err.Pos.Line <= 0 || err.Pos.Line > len(r.lines) {
		return
	}
	line := r.lines[err.Pos.Line-1]
	caret := strings.Repeat(" ", max(err.Pos.Column-1, 0)) + "^"
	fmt.Printf(" --> %s:%d:%d\n", err.Pos.Filename, err.Pos.Line, err.Pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
}
