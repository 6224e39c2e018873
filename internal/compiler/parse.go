package compiler

import (
	"spek/internal/ast"
	"spek/internal/parser"
)

func defaultParse(filename, source string) (*ast.Program, error) {
	return parser.ParseSource(filename, source)
}
