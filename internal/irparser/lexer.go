// Package irparser mirrors internal/ir's static textual form back into a
// *ir.StaticFunction, the way grammar/parser.go mirrors kanso source into an
// AST: a participle-built parser over a small stateful lexer.
package irparser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// textLexer tokenizes the static textual form ir.Print produces. BlockRef
// is matched ahead of Ident so a bare "BLOCK3" (no separator between the
// keyword and its id, matching Print's own formatting) lexes as one token
// rather than an identifier swallowing the digits. Ident takes an optional
// trailing "??" so Print's undefined-read operand ("x??") lexes as one
// token. Newline is deliberately
// not elided: it is the only delimiter between one instruction and the
// next, since the textual form carries no other statement terminator.
var textLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"BlockRef", `BLOCK[0-9]+`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Char", `'(\\.|[^'\\])*'`, nil},
		{"Number", `-?[0-9]+(\.[0-9]+)?`, nil},
		{"Op3", `>>>`, nil},
		{"Op2", `==|!=|<=|>=|&&|\|\||<<|>>`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*(\?\?)?`, nil},
		{"Punct", `[(){}:,?=]`, nil},
		{"Op1", `[-+*/%&|^~<>!]`, nil},
		{"Newline", `\n`, nil},
		{"Whitespace", `[ \t\r]+`, nil},
	},
})
