package jsparse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// punctuators is ordered longest first so the scanner takes the longest match.
var punctuators = []string{
	">>>=",
	"...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/",
	"%", "&", "|", "^", "!", "~", "?", ":", "=", ".", "@",
}

// lexer turns module source into tokens.
type lexer struct {
	src    string
	pos    int
	tokens []Token

	// braces tracks open "{" punctuators and template substitutions;
	// true marks a "${" whose closing "}" resumes the template.
	braces []bool

	newline bool
}

// Tokenize splits src into tokens. Comments and whitespace are dropped.
// The returned error is a *ParseError without a path.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src}

	err := lx.run()
	if err != nil {
		return nil, err
	}

	return lx.tokens, nil
}

func (lx *lexer) run() error {
	if strings.HasPrefix(lx.src, "#!") {
		lx.skipLine()
	}

	for {
		err := lx.skipTrivia()
		if err != nil {
			return err
		}

		if lx.pos >= len(lx.src) {
			return nil
		}

		err = lx.next()
		if err != nil {
			return err
		}
	}
}

func (lx *lexer) fail(offset int, format string, args ...any) error {
	return NewParseError("", lx.src, offset, format, args...)
}

func (lx *lexer) emit(kind TokenKind, start int) {
	lx.tokens = append(lx.tokens, Token{
		Kind:          kind,
		Start:         start,
		End:           lx.pos,
		Text:          lx.src[start:lx.pos],
		NewlineBefore: lx.newline,
	})
	lx.newline = false
}

func (lx *lexer) skipLine() {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if isLineTerminator(r) {
			return
		}

		lx.pos += size
	}
}

func (lx *lexer) skipTrivia() error {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])

		switch {
		case isLineTerminator(r):
			lx.newline = true
			lx.pos += size
		case r == ' ' || r == '\t' || r == '\v' || r == '\f' || r == 0xA0 || r == 0xFEFF || unicode.Is(unicode.Zs, r):
			lx.pos += size
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			lx.skipLine()
		case strings.HasPrefix(lx.src[lx.pos:], "/*"):
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return lx.fail(lx.pos, "unterminated comment")
			}

			body := lx.src[lx.pos+2 : lx.pos+2+end]
			if strings.ContainsAny(body, "\n\r\u2028\u2029") {
				lx.newline = true
			}

			lx.pos += end + 4
		default:
			return nil
		}
	}

	return nil
}

func (lx *lexer) next() error {
	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case c == '"' || c == '\'':
		return lx.scanString(c)
	case c == '`':
		lx.pos++

		return lx.scanTemplate(start, true)
	case c == '}' && len(lx.braces) > 0 && lx.braces[len(lx.braces)-1]:
		lx.braces = lx.braces[:len(lx.braces)-1]
		lx.pos++

		return lx.scanTemplate(start, false)
	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		lx.scanNumber()

		return nil
	case c == '#':
		lx.pos++
		if !lx.scanIdentChars() {
			return lx.fail(start, "unexpected character %q", "#")
		}

		lx.emit(TokenPrivateName, start)

		return nil
	case c == '/' && lx.regexAllowed():
		return lx.scanRegExp()
	}

	if lx.scanIdentChars() {
		lx.emit(TokenIdent, start)

		return nil
	}

	for _, p := range punctuators {
		if !strings.HasPrefix(lx.src[lx.pos:], p) {
			continue
		}

		// "?." followed by a digit is a conditional, as in a?.5:b.
		if p == "?." && lx.pos+2 < len(lx.src) && isDigit(lx.src[lx.pos+2]) {
			continue
		}

		lx.pos += len(p)

		switch p {
		case "{":
			lx.braces = append(lx.braces, false)
		case "}":
			if len(lx.braces) > 0 {
				lx.braces = lx.braces[:len(lx.braces)-1]
			}
		}

		lx.emit(TokenPunct, start)

		return nil
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])

	return lx.fail(start, "unexpected character %q", string(r))
}

// regexAllowed decides whether a slash at the current position starts a
// regular expression, judging by the previous token.
func (lx *lexer) regexAllowed() bool {
	if len(lx.tokens) == 0 {
		return true
	}

	prev := lx.tokens[len(lx.tokens)-1]

	switch prev.Kind {
	case TokenNumber, TokenString, TokenTemplate, TokenTemplateTail, TokenRegExp, TokenPrivateName:
		return false
	case TokenIdent:
		_, ok := regexAfterKeywords[prev.Text]

		return ok
	case TokenPunct:
		switch prev.Text {
		case ")", "]", "}", "++", "--":
			return false
		}

		return true
	case TokenTemplateHead, TokenTemplateMiddle:
	}

	return true
}

func (lx *lexer) scanIdentChars() bool {
	start := lx.pos

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		if c == '\\' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == 'u' {
			lx.pos += 2
			if lx.pos < len(lx.src) && lx.src[lx.pos] == '{' {
				for lx.pos < len(lx.src) && lx.src[lx.pos] != '}' {
					lx.pos++
				}

				lx.pos++
			} else {
				lx.pos += 4
			}

			if lx.pos > len(lx.src) {
				lx.pos = len(lx.src)
			}

			continue
		}

		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if lx.pos == start && !isIdentStart(r) {
			return false
		}

		if lx.pos > start && !isIdentPart(r) {
			break
		}

		lx.pos += size
	}

	return lx.pos > start
}

func (lx *lexer) scanNumber() {
	start := lx.pos

	if lx.src[lx.pos] == '0' && lx.pos+1 < len(lx.src) && strings.ContainsRune("xXoObB", rune(lx.src[lx.pos+1])) {
		lx.pos += 2
		for lx.pos < len(lx.src) && (isHexDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
			lx.pos++
		}
	} else {
		lx.scanDigits()

		if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
			lx.pos++
			lx.scanDigits()
		}

		if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
			lx.pos++
			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.pos++
			}

			lx.scanDigits()
		}
	}

	if lx.pos < len(lx.src) && lx.src[lx.pos] == 'n' {
		lx.pos++
	}

	lx.emit(TokenNumber, start)
}

func (lx *lexer) scanDigits() {
	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
		lx.pos++
	}
}

func (lx *lexer) scanString(quote byte) error {
	start := lx.pos
	lx.pos++

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == quote:
			lx.pos++
			lx.emit(TokenString, start)

			return nil
		case c == '\\':
			lx.pos += 2
			if lx.pos <= len(lx.src) && lx.src[lx.pos-1] == '\r' && lx.pos < len(lx.src) && lx.src[lx.pos] == '\n' {
				lx.pos++
			}
		case c == '\n' || c == '\r':
			return lx.fail(start, "unterminated string literal")
		default:
			lx.pos++
		}
	}

	return lx.fail(start, "unterminated string literal")
}

// scanTemplate scans template characters after a backtick (head) or after
// the "}" closing a substitution.
func (lx *lexer) scanTemplate(start int, head bool) error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == '`':
			lx.pos++
			if head {
				lx.emit(TokenTemplate, start)
			} else {
				lx.emit(TokenTemplateTail, start)
			}

			return nil
		case c == '\\':
			lx.pos += 2
		case c == '$' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '{':
			lx.pos += 2
			lx.braces = append(lx.braces, true)

			if head {
				lx.emit(TokenTemplateHead, start)
			} else {
				lx.emit(TokenTemplateMiddle, start)
			}

			return nil
		default:
			lx.pos++
		}
	}

	return lx.fail(start, "unterminated template literal")
}

func (lx *lexer) scanRegExp() error {
	start := lx.pos
	lx.pos++

	inClass := false

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == '\n' || c == '\r':
			return lx.fail(start, "unterminated regular expression")
		case c == '\\':
			lx.pos += 2

			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			lx.pos++
			lx.scanIdentChars()
			lx.emit(TokenRegExp, start)

			return nil
		}

		lx.pos++
	}

	return lx.fail(start, "unterminated regular expression")
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= utf8.RuneSelf && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '\u200c' || r == '\u200d' ||
		(r >= utf8.RuneSelf && (unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)))
}

// IsIdentifierName reports whether name is a plain identifier name.
func IsIdentifierName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}

		if i > 0 && !isIdentPart(r) {
			return false
		}
	}

	return true
}
