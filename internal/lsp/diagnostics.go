package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"spek/internal/compiler"
	"spek/internal/engine"
)

// Diagnose parses and name-resolves source, converting whatever
// internal/compiler reports into LSP diagnostics. Positions default to
// the start of the file when a CompilerError carries no location yet
// (see internal/semantic — position plumbing through the grammar is
// not wired up, so every diagnostic currently underlines line 1).
func Diagnose(uri, source string) []protocol.Diagnostic {
	_, err := compiler.Compile(engine.NewUniverse(), uri, source)
	if err == nil {
		return nil
	}

	if multi, ok := err.(*compiler.MultiError); ok {
		diagnostics := make([]protocol.Diagnostic, 0, len(multi.Errors))
		for _, ce := range multi.Errors {
			line := uint32(0)
			if ce.Pos.Line > 0 {
				line = uint32(ce.Pos.Line - 1)
			}
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range: protocol.Range{
					Start: protocol.Position{Line: line, Character: 0},
					End:   protocol.Position{Line: line, Character: 1},
				},
				Severity: severityPtr(protocol.DiagnosticSeverityError),
				Source:   stringPtr("spek-semantic"),
				Message:  ce.Message,
			})
		}
		return diagnostics
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 1},
		},
		Severity: severityPtr(protocol.DiagnosticSeverityError),
		Source:   stringPtr("spek-parser"),
		Message:  err.Error(),
	}}
}

func severityPtr(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }
func stringPtr(s string) *string                                            { return &s }
