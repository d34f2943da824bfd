package jsparse

// TokenKind classifies a lexical token.
type TokenKind uint8

// Token kinds produced by [Tokenize].
const (
	TokenIdent TokenKind = iota + 1
	TokenPrivateName
	TokenPunct
	TokenNumber
	TokenString
	// TokenTemplate is a template literal without substitutions.
	TokenTemplate
	// TokenTemplateHead runs from the opening backtick through the first "${".
	TokenTemplateHead
	// TokenTemplateMiddle runs from a closing "}" through the next "${".
	TokenTemplateMiddle
	// TokenTemplateTail runs from a closing "}" through the closing backtick.
	TokenTemplateTail
	TokenRegExp
)

var tokenKindNames = map[TokenKind]string{
	TokenIdent:          "identifier",
	TokenPrivateName:    "private name",
	TokenPunct:          "punctuator",
	TokenNumber:         "number",
	TokenString:         "string",
	TokenTemplate:       "template",
	TokenTemplateHead:   "template head",
	TokenTemplateMiddle: "template middle",
	TokenTemplateTail:   "template tail",
	TokenRegExp:         "regular expression",
}

// String returns a human-readable name for the kind.
func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Token is one lexical token. Comments and whitespace are not tokens; they
// stay in the source between token spans.
type Token struct {
	Kind  TokenKind
	Start int
	End   int
	Text  string

	// NewlineBefore reports a line terminator between this token and the
	// previous one, including line terminators inside block comments.
	NewlineBefore bool
}

// Is reports whether the token is an identifier or punctuator with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokenIdent || t.Kind == TokenPunct) && t.Text == text
}

// IsPunct reports whether the token is the given punctuator.
func (t Token) IsPunct(text string) bool {
	return t.Kind == TokenPunct && t.Text == text
}

// reservedWords can never name a binding in module code.
var reservedWords = map[string]struct{}{
	"await": {}, "break": {}, "case": {}, "catch": {}, "class": {}, "const": {},
	"continue": {}, "debugger": {}, "default": {}, "delete": {}, "do": {},
	"else": {}, "enum": {}, "export": {}, "extends": {}, "false": {},
	"finally": {}, "for": {}, "function": {}, "if": {}, "implements": {},
	"import": {}, "in": {}, "instanceof": {}, "interface": {}, "let": {},
	"new": {}, "null": {}, "package": {}, "private": {}, "protected": {},
	"public": {}, "return": {}, "static": {}, "super": {}, "switch": {},
	"this": {}, "throw": {}, "true": {}, "try": {}, "typeof": {}, "var": {},
	"void": {}, "while": {}, "with": {}, "yield": {},
}

// IsReserved reports whether name is a reserved word in strict module code.
func IsReserved(name string) bool {
	_, ok := reservedWords[name]

	return ok
}

// valueKeywords end an expression the way an identifier does.
var valueKeywords = map[string]struct{}{
	"this": {}, "super": {}, "null": {}, "true": {}, "false": {},
}

// regexAfterKeywords are keywords after which a slash starts a regular expression.
var regexAfterKeywords = map[string]struct{}{
	"return": {}, "typeof": {}, "instanceof": {}, "in": {}, "of": {}, "new": {},
	"delete": {}, "void": {}, "throw": {}, "case": {}, "do": {}, "else": {},
	"yield": {}, "await": {}, "extends": {},
}

// endsExpression reports whether tok can be the last token of an expression.
func endsExpression(tok Token) bool {
	switch tok.Kind {
	case TokenIdent:
		if _, ok := valueKeywords[tok.Text]; ok {
			return true
		}

		return !IsReserved(tok.Text)
	case TokenNumber, TokenString, TokenTemplate, TokenTemplateTail, TokenRegExp, TokenPrivateName:
		return true
	case TokenPunct:
		switch tok.Text {
		case ")", "]", "}", "++", "--":
			return true
		}
	case TokenTemplateHead, TokenTemplateMiddle:
	}

	return false
}

// continuesExpression reports whether tok, seen at the start of a new line,
// extends the expression on the previous line instead of starting a statement.
func continuesExpression(tok Token) bool {
	switch tok.Kind {
	case TokenPunct:
		switch tok.Text {
		case "{", "!", "~", "++", "--", "@", "#":
			return false
		}

		return true
	case TokenTemplate, TokenTemplateHead:
		return true
	case TokenIdent:
		return tok.Text == "in" || tok.Text == "instanceof"
	case TokenPrivateName, TokenNumber, TokenString, TokenTemplateMiddle, TokenTemplateTail, TokenRegExp:
	}

	return false
}
