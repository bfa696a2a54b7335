package mediaquery

import (
	"strconv"
	"strings"
)

// tokenKind identifies a lexical token in a media query.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent     // width, and, portrait
	tokNumber    // 768, 1.5
	tokDimension // 768px, 2dppx
	tokColon
	tokComma
	tokSlash
	tokLParen
	tokRParen
	tokLT // <
	tokLE // <=
	tokGT // >
	tokGE // >=
	tokEq // =
)

// String returns a human-readable name for the token kind, used in
// parse error messages.
func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokDimension:
		return "dimension"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokSlash:
		return "'/'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLT:
		return "'<'"
	case tokLE:
		return "'<='"
	case tokGT:
		return "'>'"
	case tokGE:
		return "'>='"
	case tokEq:
		return "'='"
	default:
		return "token"
	}
}

// token is a single lexical unit. Identifiers and units are lowered
// during scanning; CSS is case-insensitive.
type token struct {
	kind tokenKind
	text string  // lowered source text
	num  float64 // numeric value for tokNumber and tokDimension
	unit string  // lowered unit for tokDimension
	pos  int     // byte offset into the query
}

// lex scans the query into a token stream terminated by tokEOF.
func lex(input string) ([]token, *ParseError) {
	var toks []token
	i := 0

	for i < len(input) {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, text: ":", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokEq, text: "=", pos: i})
			i++

		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokLE, text: "<=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLT, text: "<", pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokGE, text: ">=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGT, text: ">", pos: i})
				i++
			}

		case isDigit(c) || c == '.' || ((c == '-' || c == '+') && i+1 < len(input) && isNumStart(input[i+1])):
			tok, n, err := lexNumber(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n

		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentChar(input[i]) {
				i++
			}
			toks = append(toks, token{
				kind: tokIdent,
				text: strings.ToLower(input[start:i]),
				pos:  start,
			})

		default:
			return nil, &ParseError{
				Query:   input,
				Pos:     i,
				Code:    "E020",
				Message: "unexpected character " + strconv.QuoteRune(rune(c)),
			}
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

// lexNumber scans a number with an optional trailing unit starting at
// offset start. It returns the token and the offset past it.
func lexNumber(input string, start int) (token, int, *ParseError) {
	i := start
	if input[i] == '-' || input[i] == '+' {
		i++
	}
	sawDigit := false
	for i < len(input) && isDigit(input[i]) {
		i++
		sawDigit = true
	}
	if i < len(input) && input[i] == '.' {
		i++
		for i < len(input) && isDigit(input[i]) {
			i++
			sawDigit = true
		}
	}
	if !sawDigit {
		return token{}, 0, &ParseError{
			Query:   input,
			Pos:     start,
			Code:    "E020",
			Message: "malformed number",
		}
	}

	num, err := strconv.ParseFloat(input[start:i], 64)
	if err != nil {
		return token{}, 0, &ParseError{
			Query:   input,
			Pos:     start,
			Code:    "E020",
			Message: "malformed number",
		}
	}

	// Trailing letters form a unit, turning the number into a dimension.
	unitStart := i
	for i < len(input) && isLetter(input[i]) {
		i++
	}
	if i > unitStart {
		return token{
			kind: tokDimension,
			text: strings.ToLower(input[start:i]),
			num:  num,
			unit: strings.ToLower(input[unitStart:i]),
			pos:  start,
		}, i, nil
	}

	return token{
		kind: tokNumber,
		text: input[start:i],
		num:  num,
		pos:  start,
	}, i, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNumStart(c byte) bool {
	return isDigit(c) || c == '.'
}

func isIdentStart(c byte) bool {
	return isLetter(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}
