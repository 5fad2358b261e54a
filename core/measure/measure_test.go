package measure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counts struct {
	total, code, comment, blank int
}

func measureRust(src string) counts {
	m := Measure("x.rs", []byte(src), Rust)
	return counts{m.TotalLines, m.CodeLines, m.CommentLines, m.BlankLines}
}

func TestMeasureRust(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want counts
	}{
		{"empty", "", counts{}},
		{"single line without newline", "fn main() {}", counts{1, 1, 0, 0}},
		{"trailing newline", "fn main() {}\n", counts{1, 1, 0, 0}},
		{"blank lines", "\n  \n\t\n", counts{3, 0, 0, 3}},
		{"line comment", "// hello\nlet x = 1;\n", counts{2, 1, 1, 0}},
		{"doc comment", "/// docs\n//! crate docs\n", counts{2, 0, 2, 0}},
		{"code then comment", "let x = 1; // trailing\n", counts{1, 1, 0, 0}},
		{"block comment", "/*\n * body\n\n */\nfn f() {}\n", counts{5, 1, 3, 1}},
		{"code after block close", "/* start\nend */ let y = 2;\n", counts{2, 1, 1, 0}},
		{"code before block open", "let z = 3; /* note\n still note */\n", counts{2, 1, 1, 0}},
		{"block comments do not nest", "/* outer /* inner */\nlet a = 1; */\n", counts{2, 1, 1, 0}},
		{"comment opener in string", "let s = \"// not a comment\";\n", counts{1, 1, 0, 0}},
		{"block opener in string", "let s = \"/* nope\";\nlet t = 1;\n", counts{2, 2, 0, 0}},
		{"escaped quote in string", "let s = \"a \\\" // b\";\n// real\n", counts{2, 1, 1, 0}},
		{"multi-line string", "let s = \"first\n\n// still string\";\n", counts{3, 3, 0, 0}},
		{"raw string", "let r = r\"C:\\path // x\";\n// c\n", counts{2, 1, 1, 0}},
		{"raw string with hashes", "let r = r#\"say \"/*\" now\"#;\nlet q = 1;\n", counts{2, 2, 0, 0}},
		{"byte raw string", "let b = br\"//\";\n", counts{1, 1, 0, 0}},
		{"char literal quote", "let c = '\"'; // c\n// d\n", counts{2, 1, 1, 0}},
		{"char literal escape", "let c = '\\''; let d = 1;\n/* e */\n", counts{2, 1, 1, 0}},
		{"lifetime", "fn f<'a>(x: &'a str) -> &'a str { x } // ok\n// z\n", counts{2, 1, 1, 0}},
		{"crlf", "// a\r\nlet b = 1;\r\n\r\n", counts{3, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measureRust(tt.src))
		})
	}
}

func TestMeasureScenarioFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("// Module a\n")
	b.WriteString("// Second comment\n")
	b.WriteString("\n")
	for i := range 10 {
		b.WriteString("let v")
		b.WriteByte(byte('0' + i))
		b.WriteString(" = 1;\n")
	}

	m := Measure("a.rs", []byte(b.String()), Rust)
	assert.Equal(t, "a.rs", m.Path)
	assert.Equal(t, 13, m.TotalLines)
	assert.Equal(t, 10, m.CodeLines)
	assert.Equal(t, 2, m.CommentLines)
	assert.Equal(t, 1, m.BlankLines)
	assert.Equal(t, m.TotalLines, m.CodeLines+m.CommentLines+m.BlankLines)
}

func TestMeasureOtherProfiles(t *testing.T) {
	goSrc := "package x\n\n// c\nvar s = `raw\n// inside`\nvar r = '\\''\n"
	m := Measure("x.go", []byte(goSrc), ProfileFor("x.go"))
	assert.Equal(t, 6, m.TotalLines)
	assert.Equal(t, 4, m.CodeLines)
	assert.Equal(t, 1, m.CommentLines)
	assert.Equal(t, 1, m.BlankLines)

	pySrc := "# header\nx = '# not comment'\ny = \"#\"  # trailing\n"
	m = Measure("x.py", []byte(pySrc), ProfileFor("x.py"))
	assert.Equal(t, 3, m.TotalLines)
	assert.Equal(t, 2, m.CodeLines)
	assert.Equal(t, 1, m.CommentLines)
}

func TestMeasureJavaScriptLiterals(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		src     string
		code    int
		comment int
	}{
		{"single quoted opener", "a.js", "const s = '/*';\nfoo();\nbar();\n", 3, 0},
		{"template literal opener", "a.ts", "const t = `/*`;\nfoo();\n", 2, 0},
		{"multi-line template", "a.tsx", "const t = `line\n// still text\n`;\n// real\n", 3, 1},
		{"escaped tick", "a.jsx", "const t = `a\\`/*`;\nfoo();\n", 2, 0},
		{"real block comment", "a.js", "/* doc\n   more */\nfoo();\n", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Measure(tt.path, []byte(tt.src), ProfileFor(tt.path))
			assert.Equal(t, tt.code, m.CodeLines)
			assert.Equal(t, tt.comment, m.CommentLines)
			assert.Equal(t, m.TotalLines, m.CodeLines+m.CommentLines+m.BlankLines)
		})
	}
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, "rust", ProfileFor("src/lib.rs").Name)
	assert.Equal(t, "go", ProfileFor("main.go").Name)
	assert.Equal(t, "javascript", ProfileFor("app.TS").Name)
	assert.Equal(t, "c", ProfileFor("Main.java").Name)
	assert.Equal(t, "script", ProfileFor("run.sh").Name)
	assert.Equal(t, "rust", ProfileFor("README").Name)
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("fn main() {}\n"))
	h2 := Hash([]byte("fn main() {}\n"))
	h3 := Hash([]byte("fn main() {}\r"))

	require.Len(t, h1, 32)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3, "same size edits must change the hash")
	assert.Equal(t, Hash(nil), Measure("e.rs", nil, Rust).ContentHash)
}

func FuzzMeasure(f *testing.F) {
	f.Add("fn main() { let s = r#\"/*\"#; } // x\n/* a\nb */\n")
	f.Add("'a' '\\n' \"\\\"\" /* /* */ */")
	f.Fuzz(func(t *testing.T, src string) {
		m := Measure("f.rs", []byte(src), Rust)
		if m.TotalLines != m.CodeLines+m.CommentLines+m.BlankLines {
			t.Fatalf("line classes do not sum to total for %q: %+v", src, m)
		}
	})
}
