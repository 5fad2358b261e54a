package measure

import (
	"path/filepath"
	"strings"
)

// Profile describes the comment and literal syntax of a language family.
type Profile struct {
	Name         string
	LineComments []string // Openers that comment out the rest of the line
	BlockOpen    string   // Empty when the language has no block comments
	BlockClose   string
	Quotes       string // Characters that open an escaped string literal
	RawStrings   bool   // Rust r"..." and r#"..."# literals
	CharLiterals bool   // 'x' is a char literal and 'a may be a lifetime
	Backticks    bool   // Backtick strings spanning lines
	EscapedTicks bool   // Backslash escapes apply inside backtick strings
}

// Built-in profiles.
var (
	Rust = Profile{
		Name:         "rust",
		LineComments: []string{"//"},
		BlockOpen:    "/*",
		BlockClose:   "*/",
		Quotes:       `"`,
		RawStrings:   true,
		CharLiterals: true,
	}
	Go = Profile{
		Name:         "go",
		LineComments: []string{"//"},
		BlockOpen:    "/*",
		BlockClose:   "*/",
		Quotes:       `"`,
		CharLiterals: true,
		Backticks:    true,
	}
	CFamily = Profile{
		Name:         "c",
		LineComments: []string{"//"},
		BlockOpen:    "/*",
		BlockClose:   "*/",
		Quotes:       `"`,
		CharLiterals: true,
	}
	JavaScript = Profile{
		Name:         "javascript",
		LineComments: []string{"//"},
		BlockOpen:    "/*",
		BlockClose:   "*/",
		Quotes:       `"'`,
		Backticks:    true,
		EscapedTicks: true,
	}
	Script = Profile{
		Name:         "script",
		LineComments: []string{"#"},
		Quotes:       `"'`,
	}
)

var profilesByExt = map[string]Profile{
	".rs":   Rust,
	".go":   Go,
	".c":    CFamily,
	".h":    CFamily,
	".cc":   CFamily,
	".cpp":  CFamily,
	".hpp":  CFamily,
	".java": CFamily,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".ts":   JavaScript,
	".tsx":  JavaScript,
	".py":   Script,
	".sh":   Script,
	".bash": Script,
	".rb":   Script,
}

// ProfileFor picks the profile for a file by extension. Unknown extensions use Rust.
func ProfileFor(path string) Profile {
	if p, ok := profilesByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return p
	}
	return Rust
}
