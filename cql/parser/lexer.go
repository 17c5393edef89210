package parser

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
	tokBindPositional
	tokBindNamed
)

type token struct {
	kind  tokenKind
	text  string
	quoted bool
}

// tokenize splits raw CQL text into tokens. It is a single hand-rolled
// scanner (no parser-combinator/lexer dependency, see DESIGN.md), mirroring
// the original's tokenizer stage.
func tokenize(input string) ([]token, error) {
	var toks []token
	r := []rune(input)
	i, n := 0, len(r)

	for i < n {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '-' && i+1 < n && r[i+1] == '-':
			for i < n && r[i] != '\n' {
				i++
			}
		case c == '\'':
			start := i
			i++
			var sb strings.Builder
			for {
				if i >= n {
					return nil, fmt.Errorf("cql: unterminated string literal starting at %d", start)
				}
				if r[i] == '\'' {
					if i+1 < n && r[i+1] == '\'' {
						sb.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(r[i])
				i++
			}
			toks = append(toks, token{kind: tokString, text: sb.String()})
		case c == '"':
			i++
			var sb strings.Builder
			for {
				if i >= n {
					return nil, fmt.Errorf("cql: unterminated quoted identifier")
				}
				if r[i] == '"' {
					i++
					break
				}
				sb.WriteRune(r[i])
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: sb.String(), quoted: true})
		case c == '?':
			toks = append(toks, token{kind: tokBindPositional, text: "?"})
			i++
		case c == ':' && i+1 < n && isIdentRune(r[i+1]):
			i++
			start := i
			for i < n && isIdentRune(r[i]) {
				i++
			}
			toks = append(toks, token{kind: tokBindNamed, text: string(r[start:i])})
		case unicode.IsDigit(c) || (c == '-' && i+1 < n && unicode.IsDigit(r[i+1])):
			start := i
			if c == '-' {
				i++
			}
			for i < n && (unicode.IsDigit(r[i]) || r[i] == '.' || r[i] == 'e' || r[i] == 'E' ||
				((r[i] == '+' || r[i] == '-') && i > start && (r[i-1] == 'e' || r[i-1] == 'E'))) {
				i++
			}
			// A bare hex-looking run after a digit may actually be the start
			// of a UUID literal (8-4-4-4-12 hex separated by '-'); detect
			// that by continuing to scan hex/hyphen runs when we see the
			// shape immediately following.
			if looksLikeUUIDContinuation(r, i) {
				for i < n && isHexOrHyphen(r[i]) {
					i++
				}
				toks = append(toks, token{kind: tokIdent, text: string(r[start:i])})
				continue
			}
			toks = append(toks, token{kind: tokNumber, text: string(r[start:i])})
		case isIdentStartRune(c):
			start := i
			for i < n && (isIdentRune(r[i]) || r[i] == '-') {
				// allow hyphenated runs so UUID literals (which start with a
				// hex digit, covered above) and identifiers both scan as one
				// token; bare identifiers never legitimately contain '-' in
				// this grammar so this only ever fires for hex/uuid text.
				if r[i] == '-' && !(i+1 < n && isHexRune(r[i+1])) {
					break
				}
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(r[start:i])})
		case strings.ContainsRune("(),.;=*<>", c):
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		case c == '[' || c == ']' || c == '{' || c == '}' || c == ':':
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		default:
			return nil, fmt.Errorf("cql: unexpected character %q at position %d", c, i)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentStartRune(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func isHexRune(c rune) bool {
	return unicode.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isHexOrHyphen(c rune) bool {
	return isHexRune(c) || c == '-'
}

// looksLikeUUIDContinuation reports whether the scanner stopped right
// before a '-' followed by hex digits, the shape a UUID literal takes after
// its leading numeric/hex group.
func looksLikeUUIDContinuation(r []rune, i int) bool {
	return i < len(r) && r[i] == '-' && i+1 < len(r) && isHexRune(r[i+1])
}

// normalizeIdentifier folds unquoted identifiers to lowercase (spec §6:
// "Identifiers are case-insensitive and folded to lowercase") and leaves
// quoted identifiers untouched. The fold is a plain strings.ToLower: digits
// and underscores stay exactly where they were written, so `c1` stays `c1`.
func normalizeIdentifier(raw string, quoted bool) string {
	if quoted {
		return raw
	}
	return strings.ToLower(raw)
}
