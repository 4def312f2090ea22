package ail

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	aerrors "github.com/ailrun/ail/pkg/errors"
)

// Lex scans src into a bounded token stream. It runs in a single
// left-to-right pass (no backtracking), so it is linear in len(src).
// It fails with a Security error the moment the token count would
// exceed maxTokens, even if src has more text left to scan — a text
// yielding exactly maxTokens tokens still lexes successfully.
func Lex(src string, maxTokens int) ([]Token, error) {
	l := &lexer{src: []rune(src), maxTokens: maxTokens}
	return l.run()
}

type lexer struct {
	src       []rune
	pos       int
	maxTokens int
	tokens    []Token
}

func (l *lexer) run() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			break
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if len(l.tokens) > l.maxTokens {
			return nil, aerrors.New(aerrors.KindSecurity,
				fmt.Sprintf("token count exceeds max_tokens (%d)", l.maxTokens))
		}
	}
	return l.tokens, nil
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) next() (Token, error) {
	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Text: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Text: ")", Pos: start}, nil
	case '[':
		l.pos++
		return Token{Kind: TokLBracket, Text: "[", Pos: start}, nil
	case ']':
		l.pos++
		return Token{Kind: TokRBracket, Text: "]", Pos: start}, nil
	case '{':
		l.pos++
		return Token{Kind: TokLBrace, Text: "{", Pos: start}, nil
	case '}':
		l.pos++
		return Token{Kind: TokRBrace, Text: "}", Pos: start}, nil
	case ':':
		l.pos++
		return Token{Kind: TokColon, Text: ":", Pos: start}, nil
	case ',':
		l.pos++
		return Token{Kind: TokComma, Text: ",", Pos: start}, nil
	case '"':
		return l.scanString(start)
	}

	if c == '-' || unicode.IsDigit(c) {
		return l.scanNumber(start)
	}
	if isWordStart(c) {
		return l.scanWord(start)
	}

	return Token{}, aerrors.New(aerrors.KindParse,
		fmt.Sprintf("unexpected character %q at position %d", c, start))
}

func isWordStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-'
}

func (l *lexer) scanString(start int) (Token, error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, aerrors.New(aerrors.KindParse, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			return Token{Kind: TokString, Text: sb.String(), Pos: start}, nil
		}
		if c == '\\' {
			l.pos++
			if l.pos >= len(l.src) {
				return Token{}, aerrors.New(aerrors.KindParse, "unterminated escape in string literal")
			}
			esc := l.src[l.pos]
			switch esc {
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				return Token{}, aerrors.New(aerrors.KindParse, fmt.Sprintf("invalid escape \\%c", esc))
			}
			l.pos++
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
}

func (l *lexer) scanNumber(start int) (Token, error) {
	if l.peek() == '-' {
		l.pos++
	}
	if l.pos >= len(l.src) || !unicode.IsDigit(l.src[l.pos]) {
		return Token{}, aerrors.New(aerrors.KindParse, fmt.Sprintf("malformed number at position %d", start))
	}
	for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peek() == '.' {
		l.pos++
		if l.pos >= len(l.src) || !unicode.IsDigit(l.src[l.pos]) {
			return Token{}, aerrors.New(aerrors.KindParse, fmt.Sprintf("malformed number at position %d", start))
		}
		for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		if l.pos >= len(l.src) || !unicode.IsDigit(l.src[l.pos]) {
			return Token{}, aerrors.New(aerrors.KindParse, fmt.Sprintf("malformed number at position %d", start))
		}
		for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, aerrors.Wrap(aerrors.KindParse, "malformed number", err)
	}
	return Token{Kind: TokNumber, Text: text, Num: n, Pos: start}, nil
}

func (l *lexer) scanWord(start int) (Token, error) {
	for l.pos < len(l.src) && isWordRune(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])

	switch text {
	case "true":
		return Token{Kind: TokBoolean, Text: text, Bool: true, Pos: start}, nil
	case "false":
		return Token{Kind: TokBoolean, Text: text, Bool: false, Pos: start}, nil
	case "null":
		return Token{Kind: TokNull, Text: text, Pos: start}, nil
	}
	if _, ok := operations[text]; ok {
		return Token{Kind: TokOperation, Text: text, Pos: start}, nil
	}
	return Token{Kind: TokIdentifier, Text: text, Pos: start}, nil
}
