package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SpekLexer tokenizes the surface syntax: variable declarations,
// arithmetic/comparison expressions, and `await` statements — the slice
// of the language the compiler currently lowers (spec §9's "source
// patterns requiring re-architecture" excludes the rest from this pass).
var SpekLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Operator", `(==|!=|<=|>=|&&|\|\||[-+*/%=<>!])`, nil},
		{"Punctuation", `[(),;]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
