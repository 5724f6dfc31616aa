package config

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes the Tcl-flavoured command language of OpenOCD
// configuration scripts.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	// Newlines and semicolons both end a command.
	{Name: "EOL", Pattern: `[\n;]+`},
	// A backslash before a newline continues the command.
	{Name: "Whitespace", Pattern: `(?:[ \t\r]|\\\r?\n)+`},
	{Name: "Word", Pattern: `(?:[^\s;"#\\]|\\\S)+`},
})
