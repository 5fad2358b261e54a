// Package measure classifies source lines as code, comment or blank and digests file contents.
package measure

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/pj/schema"
	"github.com/zeebo/xxh3"
)

// lexState is the classifier state carried from one line to the next.
type lexState int

const (
	stateCode lexState = iota
	stateBlock
	stateString
	stateRaw
	stateBacktick
)

type scanner struct {
	profile Profile
	state   lexState
	quote   byte // Closing quote for stateString
	hashes  int  // Number of '#' closing a raw string
}

// Hash returns the hex encoded XXH3-128 digest of content.
func Hash(content []byte) string {
	sum := xxh3.Hash128(content).Bytes()
	return hex.EncodeToString(sum[:])
}

// Measure classifies every line of content and returns the metrics for path.
// Block comments do not nest: the first closer ends the comment.
func Measure(path string, content []byte, profile Profile) schema.FileMetrics {
	m := schema.FileMetrics{Path: path, ContentHash: Hash(content)}
	if len(content) == 0 {
		return m
	}

	s := &scanner{profile: profile}
	rest := content
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		m.TotalLines++

		switch s.classify(line) {
		case lineCode:
			m.CodeLines++
		case lineComment:
			m.CommentLines++
		default:
			m.BlankLines++
		}
	}
	return m
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineCode
)

func (s *scanner) classify(line []byte) lineKind {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	hasCode, hasComment := false, false

	// Continuation lines of a string literal are code.
	if s.state == stateString || s.state == stateRaw || s.state == stateBacktick {
		hasCode = true
	}

	for i := 0; i < len(line); {
		switch s.state {
		case stateBlock:
			if len(bytes.TrimSpace(line[i:])) > 0 {
				hasComment = true
			}
			end := bytes.Index(line[i:], []byte(s.profile.BlockClose))
			if end < 0 {
				i = len(line)
				continue
			}
			i += end + len(s.profile.BlockClose)
			s.state = stateCode

		case stateString:
			switch line[i] {
			case '\\':
				i += 2
			case s.quote:
				s.state = stateCode
				i++
			default:
				i++
			}

		case stateRaw:
			if line[i] == '"' && closesRaw(line[i+1:], s.hashes) {
				i += 1 + s.hashes
				s.state = stateCode
				continue
			}
			i++

		case stateBacktick:
			switch {
			case line[i] == '\\' && s.profile.EscapedTicks:
				i += 2
			case line[i] == '`':
				s.state = stateCode
				i++
			default:
				i++
			}

		default:
			c := line[i]
			if c == ' ' || c == '\t' || c == '\f' || c == '\v' {
				i++
				continue
			}
			if s.startsLineComment(line[i:]) {
				hasComment = true
				i = len(line)
				continue
			}
			if bo := s.profile.BlockOpen; bo != "" && bytes.HasPrefix(line[i:], []byte(bo)) {
				hasComment = true
				s.state = stateBlock
				i += len(bo)
				continue
			}
			hasCode = true
			i = s.codeToken(line, i)
		}
	}

	switch {
	case hasCode:
		return lineCode
	case hasComment:
		return lineComment
	default:
		return lineBlank
	}
}

func (s *scanner) startsLineComment(b []byte) bool {
	for _, lc := range s.profile.LineComments {
		if bytes.HasPrefix(b, []byte(lc)) {
			return true
		}
	}
	return false
}

// codeToken consumes one code token starting at i, entering literal states as needed.
func (s *scanner) codeToken(line []byte, i int) int {
	c := line[i]
	switch {
	case strings.IndexByte(s.profile.Quotes, c) >= 0:
		s.state = stateString
		s.quote = c
		return i + 1
	case c == '`' && s.profile.Backticks:
		s.state = stateBacktick
		return i + 1
	case c == '\'' && s.profile.CharLiterals:
		return skipCharLiteral(line, i)
	case s.profile.RawStrings && (c == 'r' || c == 'b'):
		if n, hashes, ok := rawStringStart(line, i); ok {
			s.state = stateRaw
			s.hashes = hashes
			return n
		}
	}
	if isIdent(c) {
		// Skip whole identifiers so that r"..." inside a name is not a raw string.
		j := i + 1
		for j < len(line) && isIdent(line[j]) {
			j++
		}
		return j
	}
	return i + 1
}

// rawStringStart recognizes r"..., r#"..., br"... at i and returns the index after the opening quote.
func rawStringStart(line []byte, i int) (int, int, bool) {
	if i > 0 && isIdent(line[i-1]) {
		return 0, 0, false
	}
	j := i
	if line[j] == 'b' {
		j++
	}
	if j >= len(line) || line[j] != 'r' {
		return 0, 0, false
	}
	j++
	hashes := 0
	for j < len(line) && line[j] == '#' {
		hashes++
		j++
	}
	if j >= len(line) || line[j] != '"' {
		return 0, 0, false
	}
	return j + 1, hashes, true
}

func closesRaw(after []byte, hashes int) bool {
	if len(after) < hashes {
		return false
	}
	for k := range hashes {
		if after[k] != '#' {
			return false
		}
	}
	return true
}

// skipCharLiteral consumes 'x' or '\n' style literals. A quote that does not close
// within one character is a lifetime or label and only the quote is consumed.
func skipCharLiteral(line []byte, i int) int {
	j := i + 1
	if j >= len(line) {
		return j
	}
	if line[j] == '\\' {
		for k := j + 2; k < len(line) && k <= j+10; k++ {
			if line[k] == '\'' {
				return k + 1
			}
		}
		return j
	}
	_, size := utf8.DecodeRune(line[j:])
	if j+size < len(line) && line[j+size] == '\'' {
		return j + size + 1
	}
	return j
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= utf8.RuneSelf
}
