package config

import "github.com/alecthomas/participle/v2/lexer"

// File is a parsed script: commands separated by newlines or semicolons.
type File struct {
	Commands []*Command `parser:"( @@ | EOL )*"`
}

// Command is one command word followed by its arguments.
type Command struct {
	Pos lexer.Position

	Name string `parser:"@Word"`
	Args []*Arg `parser:"@@*"`
}

// Arg is a bare word or a quoted string.
type Arg struct {
	Word   *string `parser:"  @Word"`
	String *string `parser:"| @String"`
}

// Value returns the argument text with quotes removed.
func (a *Arg) Value() string {
	if a.Word != nil {
		return *a.Word
	}
	if a.String != nil {
		return *a.String
	}
	return ""
}
