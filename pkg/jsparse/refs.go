package jsparse

// IdentKind says what role an identifier token plays.
type IdentKind uint8

// Identifier roles reported by [Classify].
const (
	// IdentReference is a binding or a reference to one.
	IdentReference IdentKind = iota + 1
	// IdentShorthand is a shorthand property such as {a}; it is also a reference.
	IdentShorthand
	// IdentProperty follows "." or "?.".
	IdentProperty
	// IdentKey is an object literal key or method name.
	IdentKey
	// IdentMember is a class member name.
	IdentMember
	// IdentLabel is a statement label or a break/continue target.
	IdentLabel
)

// IsReference reports whether the identifier names a binding.
func (k IdentKind) IsReference() bool {
	return k == IdentReference || k == IdentShorthand
}

// Ident is one classified identifier occurrence.
type Ident struct {
	Kind  IdentKind
	Name  string
	Start int
	End   int
}

type frameKind uint8

const (
	frameParen frameKind = iota
	frameBracket
	frameBlock
	frameObject
	frameClassBody
	frameTemplate
)

type frame struct {
	kind         frameKind
	ternary      int
	classPending bool
}

// objectAfterKeywords start an expression, so a "{" after them is an object literal.
var objectAfterKeywords = map[string]struct{}{
	"return": {}, "typeof": {}, "instanceof": {}, "in": {}, "of": {}, "new": {},
	"delete": {}, "void": {}, "throw": {}, "case": {}, "yield": {}, "await": {},
	"extends": {},
}

// memberModifiers may precede a member name in classes and object literals.
var memberModifiers = map[string]struct{}{
	"get": {}, "set": {}, "static": {}, "async": {}, "accessor": {},
}

// classifier walks tokens of a statement keeping a stack of bracket frames.
type classifier struct {
	toks   []Token
	match  []int
	frames []*frame
	out    []Ident

	// member marks tokens that sit in a member-name position, so the name
	// after a modifier is recognized too.
	member map[int]bool

	ternaryColon map[int]bool
}

// Classify lexes text and reports the role of every identifier that is not
// a keyword. It is used to rename bindings without touching property names,
// strings, comments or labels.
func Classify(text string) ([]Ident, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}

	match, bad := pairBrackets(toks)
	if bad >= 0 {
		return nil, NewParseError("", text, toks[bad].Start, "unbalanced %q", toks[bad].Text)
	}

	c := &classifier{
		toks:         toks,
		match:        match,
		frames:       []*frame{{kind: frameBlock}},
		member:       make(map[int]bool),
		ternaryColon: make(map[int]bool),
	}

	for i := range toks {
		c.step(i)
	}

	return c.out, nil
}

func (c *classifier) top() *frame {
	return c.frames[len(c.frames)-1]
}

func (c *classifier) tok(i int) Token {
	if i < 0 || i >= len(c.toks) {
		return Token{}
	}

	return c.toks[i]
}

func (c *classifier) push(kind frameKind) {
	c.frames = append(c.frames, &frame{kind: kind})
}

func (c *classifier) pop() {
	if len(c.frames) > 1 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

func (c *classifier) step(i int) {
	t := c.toks[i]

	switch t.Kind {
	case TokenTemplateHead:
		c.push(frameTemplate)
	case TokenTemplateTail:
		c.pop()
	case TokenPunct:
		c.punct(i)
	case TokenIdent:
		c.ident(i)
	case TokenPrivateName, TokenNumber, TokenString, TokenTemplate, TokenTemplateMiddle, TokenRegExp:
	}
}

func (c *classifier) punct(i int) {
	t := c.toks[i]
	f := c.top()

	switch t.Text {
	case "(":
		c.push(frameParen)
	case "[":
		c.push(frameBracket)
	case "{":
		c.push(c.braceKind(i))
	case ")", "]", "}":
		c.pop()
	case "?":
		f.ternary++
	case ":":
		if f.ternary > 0 {
			f.ternary--
			c.ternaryColon[i] = true
		}
	case "*":
		if c.atMember(i) {
			c.member[i] = true
		}
	}
}

// braceKind decides what the "{" at i opens.
func (c *classifier) braceKind(i int) frameKind {
	f := c.top()
	prev := c.tok(i - 1)

	if f.classPending && !prev.Is("extends") {
		f.classPending = false

		return frameClassBody
	}

	if i == 0 {
		return frameBlock
	}

	switch prev.Kind {
	case TokenPunct:
		switch prev.Text {
		case ")", "=>", ";", "}", "{":
			return frameBlock
		case ":":
			if c.ternaryColon[i-1] || f.kind == frameObject {
				return frameObject
			}

			return frameBlock
		}

		return frameObject
	case TokenIdent:
		if _, ok := objectAfterKeywords[prev.Text]; ok {
			return frameObject
		}

		return frameBlock
	case TokenTemplateHead, TokenTemplateMiddle:
		return frameObject
	case TokenPrivateName, TokenNumber, TokenString, TokenTemplate, TokenTemplateTail, TokenRegExp:
	}

	return frameBlock
}

// atMember reports whether the token at i sits where a class member or
// object key may start.
func (c *classifier) atMember(i int) bool {
	f := c.top()
	prev := c.tok(i - 1)

	if c.member[i-1] && (prev.Kind == TokenIdent || prev.IsPunct("*")) {
		if _, ok := memberModifiers[prev.Text]; ok || prev.IsPunct("*") {
			return true
		}
	}

	switch f.kind {
	case frameObject:
		return prev.IsPunct("{") || prev.IsPunct(",")
	case frameClassBody:
		if prev.IsPunct("{") || prev.IsPunct(";") || prev.IsPunct("}") {
			return true
		}

		return c.toks[i].NewlineBefore && endsExpression(prev)
	case frameParen, frameBracket, frameBlock, frameTemplate:
	}

	return false
}

// isModifier reports whether the identifier at i modifies the member name after it.
func (c *classifier) isModifier(i int) bool {
	t := c.toks[i]
	if _, ok := memberModifiers[t.Text]; !ok {
		return false
	}

	next := c.tok(i + 1)
	if next.NewlineBefore && t.Text == "async" {
		return false
	}

	switch next.Kind {
	case TokenIdent, TokenString, TokenNumber, TokenPrivateName:
		return true
	case TokenPunct:
		return next.Text == "[" || next.Text == "*" || (next.Text == "{" && t.Text == "static")
	case TokenTemplate, TokenTemplateHead, TokenTemplateMiddle, TokenTemplateTail, TokenRegExp:
	}

	return false
}

func (c *classifier) emit(i int, kind IdentKind) {
	t := c.toks[i]
	c.out = append(c.out, Ident{Kind: kind, Name: t.Text, Start: t.Start, End: t.End})
}

func (c *classifier) ident(i int) {
	t := c.toks[i]
	f := c.top()
	prev, next := c.tok(i-1), c.tok(i+1)

	if i > 0 && (prev.IsPunct(".") || prev.IsPunct("?.")) {
		c.emit(i, IdentProperty)

		return
	}

	if f.kind == frameObject || f.kind == frameClassBody {
		if c.atMember(i) {
			c.classifyMember(i, f.kind)

			return
		}
	}

	if t.Text == "class" {
		f.classPending = true

		return
	}

	if IsReserved(t.Text) || c.isContextualKeyword(i) {
		return
	}

	if (prev.Is("break") || prev.Is("continue")) && !t.NewlineBefore {
		c.emit(i, IdentLabel)

		return
	}

	if next.IsPunct(":") && f.ternary == 0 && f.kind != frameObject && !prev.Is("case") {
		c.emit(i, IdentLabel)

		return
	}

	c.emit(i, IdentReference)
}

func (c *classifier) classifyMember(i int, kind frameKind) {
	next := c.tok(i + 1)

	if c.isModifier(i) {
		c.member[i] = true

		return
	}

	if kind == frameClassBody {
		c.emit(i, IdentMember)

		return
	}

	switch {
	case next.IsPunct(","), next.IsPunct("}"), next.IsPunct("="):
		if IsReserved(c.toks[i].Text) {
			return
		}

		c.emit(i, IdentShorthand)
	default:
		c.emit(i, IdentKey)
	}
}

// isContextualKeyword filters identifiers that act as keywords in context.
func (c *classifier) isContextualKeyword(i int) bool {
	t := c.toks[i]
	prev, next := c.tok(i-1), c.tok(i+1)

	switch t.Text {
	case "of":
		return i > 0 && endsExpression(prev)
	case "async":
		if next.NewlineBefore {
			return false
		}

		if next.Is("function") || (next.Kind == TokenIdent && c.tok(i+2).IsPunct("=>")) {
			return true
		}

		return next.IsPunct("(") && c.tok(c.match[i+1]+1).IsPunct("=>")
	}

	return false
}
