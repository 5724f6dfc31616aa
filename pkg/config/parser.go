package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
)

var parser = participle.MustBuild[File](
	participle.Lexer(ScriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)

// Parse reads a configuration script and interprets the commands this tool
// understands.
func Parse(r io.Reader) (*Script, error) {
	return parse("", r)
}

// ParseString parses a script held in memory.
func ParseString(src string) (*Script, error) {
	return parse("", strings.NewReader(src))
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return parse(path, f)
}

func parse(name string, r io.Reader) (*Script, error) {
	file, err := parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("config: parse error: %w", err)
	}
	return interpret(file)
}
