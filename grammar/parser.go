package grammar

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

var spekParser = participle.MustBuild[Program](
	participle.Lexer(SpekLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// ParseString parses source into a Program parse tree, tagging
// reported positions with filename.
func ParseString(filename, source string) (*Program, error) {
	program, err := spekParser.ParseString(filename, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return program, nil
}
