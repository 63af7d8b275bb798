package token

import (
	"unicode"
)

type Type int

const (
	Ident Type = iota
	ID
	Equals
	String
	Number
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case ID:
		return "id"
	case Equals:
		return "'='"
	case String:
		return "string"
	case Number:
		return "number"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == '|'
}

func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == ';' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			i--
			continue
		}

		if r == '=' {
			tokens = append(tokens, Token{"=", Equals, line})
			continue
		}

		// String literal; the stored value has escapes resolved
		if r == '"' {
			var val []rune
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
				}
				if runes[i] == '\n' {
					line++
				}
				val = append(val, runes[i])
				i++
			}
			tokens = append(tokens, Token{string(val), String, line})
			continue
		}

		// Result or operand id: %name or %12
		if r == '%' {
			start := i + 1
			i++
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), ID, line})
			i--
			continue
		}

		// Number (including negative and float forms)
		if r == '-' || r == '+' || unicode.IsDigit(r) {
			start := i
			if r == '-' || r == '+' {
				i++
			}
			for i < len(runes) {
				c := runes[i]
				if unicode.IsDigit(c) || c == '.' || c == 'x' || c == 'X' ||
					(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
					((c == '-' || c == '+') && (runes[i-1] == 'e' || runes[i-1] == 'E')) {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, line})
			i--
			continue
		}

		// Opcode, enumerant or raw word (!123)
		if unicode.IsLetter(r) || r == '_' || r == '!' {
			start := i
			i++
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}
	}

	return tokens
}
