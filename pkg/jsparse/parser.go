package jsparse

import (
	"errors"
	"fmt"
	"strings"
)

// defaultLocal is the base name given to anonymous default exports.
const defaultLocal = "_default"

// reexportPrefix starts every synthetic local created for a re-export.
const reexportPrefix = "*reexport:"

// parser walks the top-level token stream of one file.
type parser struct {
	path string
	src  string
	toks []Token

	// match pairs every bracket token with its partner.
	match []int

	pos     int
	prevEnd int
	mod     *Module

	topLevel     map[string]struct{}
	exported     map[string]int
	importLocals []localName
	exportLocals []localName
	idents       map[string]struct{}
	synthetic    int
}

// localName is a name awaiting validation against the whole file.
type localName struct {
	name   string
	offset int
}

// Parse parses one module. The result does not depend on anything but path
// and src.
func Parse(path, src string) (*Module, error) {
	toks, err := Tokenize(src)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}

		return nil, err
	}

	p := &parser{
		path:     path,
		src:      src,
		toks:     toks,
		mod:      &Module{Path: path},
		topLevel: make(map[string]struct{}),
		exported: make(map[string]int),
	}

	if strings.HasPrefix(src, "#!") {
		p.prevEnd = strings.IndexAny(src, "\r\n")
		if p.prevEnd < 0 {
			p.prevEnd = len(src)
		}
	}

	err = p.matchBrackets()
	if err != nil {
		return nil, err
	}

	err = p.run()
	if err != nil {
		return nil, err
	}

	return p.mod, nil
}

func (p *parser) fail(offset int, format string, args ...any) error {
	return NewParseError(p.path, p.src, offset, format, args...)
}

func (p *parser) failAt(i int, format string, args ...any) error {
	if i >= len(p.toks) {
		return p.fail(len(p.src), format, args...)
	}

	return p.fail(p.toks[i].Start, format, args...)
}

func (p *parser) tok(i int) Token {
	if i < 0 || i >= len(p.toks) {
		return Token{}
	}

	return p.toks[i]
}

func (p *parser) run() error {
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]

		var err error

		switch {
		case t.Is("import") && !p.tok(p.pos+1).IsPunct("(") && !p.tok(p.pos+1).IsPunct("."):
			err = p.parseImport()
		case t.Is("export"):
			err = p.parseExport()
		default:
			err = p.parseStatement()
		}

		if err != nil {
			return err
		}
	}

	return p.validate()
}

func (p *parser) matchBrackets() error {
	match, bad := pairBrackets(p.toks)
	p.match = match

	if bad < 0 {
		return nil
	}

	t := p.toks[bad]
	if isOpener(t) {
		return p.failAt(bad, "unbalanced %q", t.Text)
	}

	return p.failAt(bad, "unexpected %q", t.Text)
}

// pairBrackets maps every bracket token to its partner. The second result is
// the index of the first token that breaks the pairing, or -1.
func pairBrackets(toks []Token) ([]int, int) {
	match := make([]int, len(toks))

	var stack []int

	for i, t := range toks {
		match[i] = -1

		switch {
		case isOpener(t):
			stack = append(stack, i)
		case isCloser(t):
			if len(stack) == 0 {
				return match, i
			}

			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !pairs(toks[open], t) {
				return match, i
			}

			match[open] = i
			match[i] = open
		}
	}

	if len(stack) > 0 {
		return match, stack[len(stack)-1]
	}

	return match, -1
}

func isOpener(t Token) bool {
	return t.Kind == TokenTemplateHead || t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{")
}

func isCloser(t Token) bool {
	return t.Kind == TokenTemplateTail || t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}")
}

func pairs(open, closer Token) bool {
	switch {
	case open.Kind == TokenTemplateHead:
		return closer.Kind == TokenTemplateTail
	case open.Text == "(":
		return closer.IsPunct(")")
	case open.Text == "[":
		return closer.IsPunct("]")
	default:
		return closer.IsPunct("}")
	}
}

// statementEnd returns the index just past the statement starting at s. The
// second result reports whether the statement closed itself with ";" or with
// the "}" of a block; statements ended by a line break or EOF report false.
func (p *parser) statementEnd(s int) (int, bool, error) {
	if s >= len(p.toks) {
		return 0, false, p.failAt(s, "expected statement")
	}

	t := p.toks[s]

	switch {
	case t.Is("function"), p.isAsyncFunction(s):
		end, err := p.functionEnd(s)

		return end, true, err
	case t.Is("class"):
		end, err := p.classEnd(s)

		return end, true, err
	case t.IsPunct("{"):
		return p.match[s] + 1, true, nil
	case t.Is("if"):
		return p.ifEnd(s)
	case t.Is("for"), t.Is("while"), t.Is("with"):
		head := s + 1
		if p.tok(head).Is("await") {
			head++
		}

		body, err := p.parenthesized(head, t.Text)
		if err != nil {
			return 0, false, err
		}

		return p.statementEnd(body)
	case t.Is("switch"):
		body, err := p.parenthesized(s+1, t.Text)
		if err != nil {
			return 0, false, err
		}

		return p.block(body, t.Text)
	case t.Is("do"):
		return p.doEnd(s)
	case t.Is("try"):
		return p.tryEnd(s)
	case t.Kind == TokenIdent && !IsReserved(t.Text) && p.tok(s+1).IsPunct(":"):
		return p.statementEnd(s + 2)
	}

	end, closed := p.simpleEnd(s)

	return end, closed, nil
}

// parenthesized checks for "(" at i and returns the index past its partner.
func (p *parser) parenthesized(i int, what string) (int, error) {
	if !p.tok(i).IsPunct("(") {
		return 0, p.failAt(i, "malformed %s statement: expected \"(\"", what)
	}

	return p.match[i] + 1, nil
}

// block checks for "{" at i and returns the index past its partner.
func (p *parser) block(i int, what string) (int, bool, error) {
	if !p.tok(i).IsPunct("{") {
		return 0, false, p.failAt(i, "malformed %s statement: expected block", what)
	}

	return p.match[i] + 1, true, nil
}

func (p *parser) ifEnd(s int) (int, bool, error) {
	body, err := p.parenthesized(s+1, "if")
	if err != nil {
		return 0, false, err
	}

	end, closed, err := p.statementEnd(body)
	if err != nil || !p.tok(end).Is("else") {
		return end, closed, err
	}

	return p.statementEnd(end + 1)
}

// doEnd handles "do body while (cond)". The ";" after the condition is
// optional even on the same line.
func (p *parser) doEnd(s int) (int, bool, error) {
	end, _, err := p.statementEnd(s + 1)
	if err != nil {
		return 0, false, err
	}

	if !p.tok(end).Is("while") {
		return 0, false, p.failAt(end, "malformed do statement: expected \"while\"")
	}

	end, err = p.parenthesized(end+1, "do")
	if err != nil {
		return 0, false, err
	}

	if p.tok(end).IsPunct(";") {
		return end + 1, true, nil
	}

	return end, false, nil
}

func (p *parser) tryEnd(s int) (int, bool, error) {
	end, closed, err := p.block(s+1, "try")
	if err != nil {
		return 0, false, err
	}

	if p.tok(end).Is("catch") {
		i := end + 1
		if p.tok(i).IsPunct("(") {
			i = p.match[i] + 1
		}

		end, closed, err = p.block(i, "catch")
		if err != nil {
			return 0, false, err
		}
	}

	if p.tok(end).Is("finally") {
		return p.block(end+1, "finally")
	}

	return end, closed, nil
}

// simpleEnd scans an expression or declaration statement up to ";", a line
// break that allows automatic semicolon insertion, or EOF.
func (p *parser) simpleEnd(s int) (int, bool) {
	heads := make(map[int]bool)
	headNext := false

	for i := s; i < len(p.toks); {
		t := p.toks[i]

		if i > s && t.NewlineBefore && endsExpression(p.toks[i-1]) && !heads[i-1] && !continuesExpression(t) {
			return i, false
		}

		switch {
		case t.IsPunct(";"):
			return i + 1, true
		case t.Is("function"):
			headNext = true
		case t.IsPunct("("):
			if headNext {
				heads[p.match[i]] = true
				headNext = false
			}
		}

		if isOpener(t) {
			i = p.match[i] + 1

			continue
		}

		i++
	}

	return len(p.toks), false
}

func (p *parser) isAsyncFunction(i int) bool {
	next := p.tok(i + 1)

	return p.tok(i).Is("async") && next.Is("function") && !next.NewlineBefore
}

// functionEnd returns the index past the body of the function declaration at s.
func (p *parser) functionEnd(s int) (int, error) {
	i := s
	if p.toks[i].Is("async") {
		i++
	}

	i++ // function

	if p.tok(i).IsPunct("*") {
		i++
	}

	if p.tok(i).Kind == TokenIdent {
		i++
	}

	if !p.tok(i).IsPunct("(") {
		return 0, p.failAt(i, "malformed function declaration: expected parameter list")
	}

	body := p.match[i] + 1
	if !p.tok(body).IsPunct("{") {
		return 0, p.failAt(body, "malformed function declaration: expected body")
	}

	return p.match[body] + 1, nil
}

// functionName returns the token index of a function declaration's name, or -1.
func (p *parser) functionName(s int) int {
	i := s
	if p.toks[i].Is("async") {
		i++
	}

	i++

	if p.tok(i).IsPunct("*") {
		i++
	}

	if t := p.tok(i); t.Kind == TokenIdent {
		return i
	}

	return -1
}

// classEnd returns the index past the body of the class declaration at s.
func (p *parser) classEnd(s int) (int, error) {
	i := s + 1

	if t := p.tok(i); t.Kind == TokenIdent && !t.Is("extends") {
		i++
	}

	if p.tok(i).Is("extends") {
		i++

		for ; i < len(p.toks); i++ {
			t := p.toks[i]
			if t.IsPunct("{") && endsExpression(p.toks[i-1]) && !p.toks[i-1].Is("extends") {
				break
			}

			if isOpener(t) {
				i = p.match[i]
			}
		}
	}

	if !p.tok(i).IsPunct("{") {
		return 0, p.failAt(i, "malformed class declaration: expected class body")
	}

	return p.match[i] + 1, nil
}

// className returns the token index of a class declaration's name, or -1.
func (p *parser) className(s int) int {
	if t := p.tok(s + 1); t.Kind == TokenIdent && !t.Is("extends") {
		return s + 1
	}

	return -1
}

// parseStatement consumes one opaque statement.
func (p *parser) parseStatement() error {
	s := p.pos

	end, closed, err := p.statementEnd(s)
	if err != nil {
		return err
	}

	err = p.checkNested(s, end)
	if err != nil {
		return err
	}

	declares, err := p.declarations(s, end)
	if err != nil {
		return err
	}

	if end-s == 1 && p.toks[s].IsPunct(";") {
		p.prevEnd = p.toks[s].End
		p.pos = end

		return nil
	}

	p.addStatement(terminate(p.src[p.prevEnd:p.toks[end-1].End], closed), p.toks[s].Start, declares)
	p.prevEnd = p.toks[end-1].End
	p.pos = end

	return nil
}

// terminate appends ";" to a statement that relied on a line break or EOF to
// end, so that it cannot run into whatever is placed after it.
func terminate(text string, closed bool) string {
	if closed {
		return text
	}

	return text + ";"
}

func (p *parser) addStatement(text string, offset int, declares []string) {
	for _, name := range declares {
		p.declare(name)
	}

	p.mod.Statements = append(p.mod.Statements, Statement{
		Text:     text,
		Offset:   offset,
		Declares: declares,
	})
}

func (p *parser) declare(name string) {
	if _, ok := p.topLevel[name]; ok {
		return
	}

	p.topLevel[name] = struct{}{}
	p.mod.TopLevel = append(p.mod.TopLevel, name)
}

// checkNested rejects import and export declarations below the top level.
func (p *parser) checkNested(s, end int) error {
	for i := s; i < end; i++ {
		t := p.toks[i]
		if !t.Is("import") && !t.Is("export") {
			continue
		}

		prev, next := p.tok(i-1), p.tok(i+1)
		if i > s && (prev.IsPunct(".") || prev.IsPunct("?.")) {
			continue
		}

		if next.IsPunct(":") || next.IsPunct("(") || (t.Text == "import" && next.IsPunct(".")) {
			continue
		}

		// Shorthand or method keys inside object literals, e.g. { export, import() {} }.
		if (prev.IsPunct("{") || prev.IsPunct(",")) && (next.IsPunct(",") || next.IsPunct("}")) {
			continue
		}

		return p.failAt(i, "%s declarations may only appear at the top level", t.Text)
	}

	return nil
}

// declarations returns the top-level names declared by the statement [s, end).
func (p *parser) declarations(s, end int) ([]string, error) {
	t := p.toks[s]

	switch {
	case t.Is("var"), t.Is("let"), t.Is("const"):
		return p.declarators(s+1, end)
	case t.Is("function"), p.isAsyncFunction(s):
		if i := p.functionName(s); i >= 0 {
			return []string{p.toks[i].Text}, nil
		}

		return nil, p.failAt(s, "function declaration requires a name")
	case t.Is("class"):
		if i := p.className(s); i >= 0 {
			return []string{p.toks[i].Text}, nil
		}

		return nil, p.failAt(s, "class declaration requires a name")
	case t.Is("for"):
		i := s + 1
		if p.tok(i).Is("await") {
			i++
		}

		if p.tok(i).IsPunct("(") && p.tok(i+1).Is("var") {
			return p.declarators(i+2, p.match[i])
		}
	}

	return nil, nil
}

// declarators collects the names bound by a declarator list starting at i.
// The list ends at end, at a depth-0 ";", or at "in"/"of" after a binding.
func (p *parser) declarators(i, end int) ([]string, error) {
	var names []string

	for i < end {
		var err error

		names, i, err = p.bindingPattern(i, end, names)
		if err != nil {
			return nil, err
		}

		if p.tok(i).IsPunct("=") {
			i = p.skipExpression(i+1, end)
		}

		t := p.tok(i)
		if i >= end || !t.IsPunct(",") {
			break
		}

		i++
	}

	return names, nil
}

// skipExpression returns the index of the first depth-0 "," or ";" at or
// after i, or end.
func (p *parser) skipExpression(i, end int) int {
	for i < end {
		t := p.toks[i]
		if t.IsPunct(",") || t.IsPunct(";") {
			return i
		}

		if isOpener(t) {
			i = p.match[i] + 1

			continue
		}

		i++
	}

	return end
}

// bindingPattern appends the names bound by the pattern at i and returns the
// index past it.
func (p *parser) bindingPattern(i, end int, names []string) ([]string, int, error) {
	t := p.tok(i)

	switch {
	case i >= end:
		return names, i, p.failAt(i, "expected binding")
	case t.Kind == TokenIdent && !IsReserved(t.Text):
		return append(names, t.Text), i + 1, nil
	case t.IsPunct("["):
		close := p.match[i]
		err := p.elements(i+1, close, func(j, stop int) error {
			var err error
			names, err = p.patternElement(j, stop, names, false)

			return err
		})

		return names, close + 1, err
	case t.IsPunct("{"):
		close := p.match[i]
		err := p.elements(i+1, close, func(j, stop int) error {
			var err error
			names, err = p.patternElement(j, stop, names, true)

			return err
		})

		return names, close + 1, err
	}

	return names, i, p.failAt(i, "unexpected %q in binding pattern", t.Text)
}

// elements calls fn for every comma-separated element in [i, end).
func (p *parser) elements(i, end int, fn func(start, stop int) error) error {
	for i < end {
		stop := i

		for stop < end && !p.toks[stop].IsPunct(",") {
			if isOpener(p.toks[stop]) {
				stop = p.match[stop]
			}

			stop++
		}

		if stop > i {
			err := fn(i, stop)
			if err != nil {
				return err
			}
		}

		i = stop + 1
	}

	return nil
}

// patternElement handles one element of an array or object pattern.
func (p *parser) patternElement(i, stop int, names []string, object bool) ([]string, error) {
	if p.tok(i).IsPunct("...") {
		names, _, err := p.bindingPattern(i+1, stop, names)

		return names, err
	}

	if object {
		key := i
		if p.toks[key].IsPunct("[") {
			key = p.match[key]
		}

		if p.tok(key+1).IsPunct(":") && key+1 < stop {
			names, _, err := p.bindingPattern(key+2, stop, names)

			return names, err
		}

		t := p.toks[i]
		if t.Kind != TokenIdent || IsReserved(t.Text) {
			return names, p.failAt(i, "unexpected %q in object pattern", t.Text)
		}

		return append(names, t.Text), nil
	}

	names, _, err := p.bindingPattern(i, stop, names)

	return names, err
}

// endDeclaration consumes an optional ";" after an import or export
// declaration ending at i.
func (p *parser) endDeclaration(i int, what string) (int, error) {
	t := p.tok(i)

	switch {
	case i >= len(p.toks):
		return i, nil
	case t.IsPunct(";"):
		return i + 1, nil
	case t.NewlineBefore:
		return i, nil
	}

	return 0, p.failAt(i, "expected \";\" after %s declaration, found %q", what, t.Text)
}

// specifier reads "from 'spec'" (or a bare string when from is false) at i
// and skips any import attributes.
func (p *parser) specifier(i int, from bool, decl *ImportDecl) (int, error) {
	if from {
		if !p.tok(i).Is("from") {
			return 0, p.failAt(i, "expected \"from\"")
		}

		i++
	}

	t := p.tok(i)
	if t.Kind != TokenString {
		return 0, p.failAt(i, "expected module specifier string")
	}

	decl.Specifier = unquote(t.Text)
	decl.Offset = t.Start
	decl.Line, decl.Column = Position(p.src, t.Start)
	i++

	if a := p.tok(i); (a.Is("with") || (a.Is("assert") && !a.NewlineBefore)) && p.tok(i+1).IsPunct("{") {
		i = p.match[i+1] + 1
	}

	return i, nil
}

func (p *parser) parseImport() error {
	start := p.pos
	i := start + 1
	decl := ImportDecl{}

	var err error

	if p.tok(i).Kind == TokenString {
		i, err = p.specifier(i, false, &decl)
		if err != nil {
			return err
		}

		return p.finishImport(i, decl)
	}

	if t := p.tok(i); t.Kind == TokenIdent && !t.Is("from") || (t.Is("from") && p.tok(i+1).Is("from")) {
		local, err := p.bindingName(i)
		if err != nil {
			return err
		}

		decl.Bindings = append(decl.Bindings, Binding{Local: local, Imported: ImportDefault})
		i++

		if !p.tok(i).IsPunct(",") {
			i, err = p.specifier(i, true, &decl)
			if err != nil {
				return err
			}

			return p.finishImport(i, decl)
		}

		i++
	}

	switch t := p.tok(i); {
	case t.IsPunct("*"):
		if !p.tok(i + 1).Is("as") {
			return p.failAt(i+1, "expected \"as\" after \"*\" in import")
		}

		local, err := p.bindingName(i + 2)
		if err != nil {
			return err
		}

		decl.Bindings = append(decl.Bindings, Binding{Local: local, Imported: ImportNamespace})
		i += 3
	case t.IsPunct("{"):
		bindings, next, err := p.importList(i)
		if err != nil {
			return err
		}

		decl.Bindings = append(decl.Bindings, bindings...)
		i = next
	default:
		return p.failAt(i, "unexpected %q in import declaration", t.Text)
	}

	i, err = p.specifier(i, true, &decl)
	if err != nil {
		return err
	}

	return p.finishImport(i, decl)
}

func (p *parser) finishImport(i int, decl ImportDecl) error {
	end, err := p.endDeclaration(i, "import")
	if err != nil {
		return err
	}

	for _, b := range decl.Bindings {
		p.importLocals = append(p.importLocals, localName{name: b.Local, offset: decl.Offset})
	}

	p.mod.Imports = append(p.mod.Imports, decl)
	p.prevEnd = p.toks[end-1].End
	p.pos = end

	return nil
}

// bindingName returns the identifier at i, which must be usable as a binding.
func (p *parser) bindingName(i int) (string, error) {
	t := p.tok(i)
	if t.Kind != TokenIdent || IsReserved(t.Text) {
		return "", p.failAt(i, "expected identifier, found %q", t.Text)
	}

	return t.Text, nil
}

// moduleExportName reads an identifier name or string at i.
func (p *parser) moduleExportName(i int) (string, bool) {
	t := p.tok(i)

	switch t.Kind {
	case TokenIdent:
		return t.Text, true
	case TokenString:
		return unquote(t.Text), true
	default:
		return "", false
	}
}

// importList parses "{ a, b as c, 'd' as e }" starting at the "{" at i.
func (p *parser) importList(i int) ([]Binding, int, error) {
	close := p.match[i]

	var out []Binding

	err := p.elements(i+1, close, func(j, stop int) error {
		imported, ok := p.moduleExportName(j)
		if !ok {
			return p.failAt(j, "unexpected %q in import list", p.toks[j].Text)
		}

		local := imported
		switch {
		case stop-j == 3 && p.toks[j+1].Is("as"):
			name, err := p.bindingName(j + 2)
			if err != nil {
				return err
			}

			local = name
		case stop-j == 1 && p.toks[j].Kind == TokenIdent && !IsReserved(imported):
		default:
			return p.failAt(j, "malformed import specifier")
		}

		out = append(out, Binding{Local: local, Imported: imported})

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return out, close + 1, nil
}

// exportList parses "{ a, b as c }" starting at the "{" at i. Pairs are
// returned as (local, exported); locals may be strings only when reexport is set.
func (p *parser) exportList(i int, reexport bool) ([][2]string, int, error) {
	close := p.match[i]

	var out [][2]string

	err := p.elements(i+1, close, func(j, stop int) error {
		local, ok := p.moduleExportName(j)
		if !ok || (!reexport && p.toks[j].Kind != TokenIdent) {
			return p.failAt(j, "unexpected %q in export list", p.toks[j].Text)
		}

		exported := local
		switch {
		case stop-j == 3 && p.toks[j+1].Is("as"):
			name, ok := p.moduleExportName(j + 2)
			if !ok {
				return p.failAt(j+2, "expected export name")
			}

			exported = name
		case stop-j == 1:
		default:
			return p.failAt(j, "malformed export specifier")
		}

		out = append(out, [2]string{local, exported})

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return out, close + 1, nil
}

func (p *parser) addExport(local, exported string, kind ExportKind, offset int) error {
	if prev, ok := p.exported[exported]; ok {
		line, _ := Position(p.src, prev)

		return p.fail(offset, "duplicate export %q (first exported on line %d)", exported, line)
	}

	p.exported[exported] = offset
	p.mod.Exports = append(p.mod.Exports, ExportDecl{Local: local, Exported: exported, Kind: kind})

	return nil
}

func (p *parser) nextSynthetic() string {
	p.synthetic++

	return fmt.Sprintf("%s%d", reexportPrefix, p.synthetic)
}

func (p *parser) parseExport() error {
	start := p.pos
	i := start + 1
	t := p.tok(i)

	switch {
	case t.IsPunct("*"):
		return p.exportStar(i)
	case t.IsPunct("{"):
		return p.exportNamed(i)
	case t.Is("default"):
		return p.exportDefault(i + 1)
	case t.Is("var"), t.Is("let"), t.Is("const"), t.Is("function"), t.Is("class"), p.isAsyncFunction(i):
		return p.exportDeclaration(i)
	}

	return p.failAt(i, "unexpected %q after export", t.Text)
}

func (p *parser) exportStar(i int) error {
	offset := p.toks[p.pos].Start
	decl := ImportDecl{}
	i++

	var (
		name string
		err  error
	)

	if p.tok(i).Is("as") {
		var ok bool

		name, ok = p.moduleExportName(i + 1)
		if !ok {
			return p.failAt(i+1, "expected name after \"as\"")
		}

		i += 2
	}

	i, err = p.specifier(i, true, &decl)
	if err != nil {
		return err
	}

	if name == "" {
		p.mod.StarExports = append(p.mod.StarExports, decl.Specifier)
	} else {
		local := p.nextSynthetic()
		decl.Bindings = []Binding{{Local: local, Imported: ImportNamespace}}

		err = p.addExport(local, name, ExportReexport, offset)
		if err != nil {
			return err
		}
	}

	return p.finishImport(i, decl)
}

// exportNamed handles "export { ... }" with or without "from".
func (p *parser) exportNamed(i int) error {
	offset := p.toks[p.pos].Start

	hasFrom := p.tok(p.match[i] + 1).Is("from")

	pairs, next, err := p.exportList(i, hasFrom)
	if err != nil {
		return err
	}

	if !hasFrom {
		for _, pair := range pairs {
			p.exportLocals = append(p.exportLocals, localName{name: pair[0], offset: offset})

			err = p.addExport(pair[0], pair[1], ExportNamed, offset)
			if err != nil {
				return err
			}
		}

		end, err := p.endDeclaration(next, "export")
		if err != nil {
			return err
		}

		p.prevEnd = p.toks[end-1].End
		p.pos = end

		return nil
	}

	decl := ImportDecl{}
	for _, pair := range pairs {
		local := p.nextSynthetic()
		decl.Bindings = append(decl.Bindings, Binding{Local: local, Imported: pair[0]})

		err = p.addExport(local, pair[1], ExportReexport, offset)
		if err != nil {
			return err
		}
	}

	next, err = p.specifier(next, true, &decl)
	if err != nil {
		return err
	}

	return p.finishImport(next, decl)
}

// exportDeclaration handles "export var|let|const|function|class".
func (p *parser) exportDeclaration(i int) error {
	exportTok := p.toks[p.pos]

	end, closed, err := p.statementEnd(i)
	if err != nil {
		return err
	}

	err = p.checkNested(i, end)
	if err != nil {
		return err
	}

	declares, err := p.declarations(i, end)
	if err != nil {
		return err
	}

	kind := ExportKind(p.toks[i].Text)
	if p.isAsyncFunction(i) {
		kind = ExportFunction
	}

	for _, name := range declares {
		err = p.addExport(name, name, kind, exportTok.Start)
		if err != nil {
			return err
		}
	}

	text := p.src[p.prevEnd:exportTok.Start] + p.src[p.toks[i].Start:p.toks[end-1].End]
	p.addStatement(terminate(text, closed), exportTok.Start, declares)
	p.prevEnd = p.toks[end-1].End
	p.pos = end

	return nil
}

// exportDefault handles "export default ..." with i at the token after default.
func (p *parser) exportDefault(i int) error {
	exportTok := p.toks[p.pos]
	leading := p.src[p.prevEnd:exportTok.Start]

	if i >= len(p.toks) {
		return p.failAt(i, "expected expression after export default")
	}

	t := p.toks[i]
	isFunc := t.Is("function") || p.isAsyncFunction(i)

	if isFunc || t.Is("class") {
		end, _, err := p.statementEnd(i)
		if err != nil {
			return err
		}

		err = p.checkNested(i, end)
		if err != nil {
			return err
		}

		nameIdx := p.className(i)
		insertAfter := i

		if isFunc {
			nameIdx = p.functionName(i)

			if p.toks[i].Is("async") {
				insertAfter++
			}

			if p.tok(insertAfter + 1).IsPunct("*") {
				insertAfter++
			}
		}

		body := p.src[p.toks[i].Start:p.toks[end-1].End]
		name := ""

		if nameIdx >= 0 {
			name = p.toks[nameIdx].Text
		} else {
			name = p.defaultName()
			cut := p.toks[insertAfter].End - p.toks[i].Start
			body = body[:cut] + " " + name + body[cut:]
		}

		err = p.addExport(name, ImportDefault, ExportDefault, exportTok.Start)
		if err != nil {
			return err
		}

		p.addStatement(leading+body, exportTok.Start, []string{name})
		p.prevEnd = p.toks[end-1].End
		p.pos = end

		return nil
	}

	end, _ := p.simpleEnd(i)

	err := p.checkNested(i, end)
	if err != nil {
		return err
	}

	expr := p.src[p.toks[i].Start:p.toks[end-1].End]
	if !strings.HasSuffix(expr, ";") {
		expr += ";"
	}

	name := p.defaultName()

	err = p.addExport(name, ImportDefault, ExportDefault, exportTok.Start)
	if err != nil {
		return err
	}

	p.addStatement(leading+"const "+name+" = "+expr, exportTok.Start, []string{name})
	p.prevEnd = p.toks[end-1].End
	p.pos = end

	return nil
}

// defaultName picks a local for an anonymous default export that no
// identifier in the file already uses.
func (p *parser) defaultName() string {
	if p.idents == nil {
		p.idents = make(map[string]struct{})

		for _, t := range p.toks {
			if t.Kind == TokenIdent {
				p.idents[t.Text] = struct{}{}
			}
		}
	}

	name := defaultLocal
	for n := 1; ; n++ {
		if _, taken := p.idents[name]; !taken {
			break
		}

		name = fmt.Sprintf("%s$%d", defaultLocal, n)
	}

	p.idents[name] = struct{}{}

	return name
}

// validate checks import locals against top-level declarations and named
// exports against known locals once the whole file has been seen.
func (p *parser) validate() error {
	imports := make(map[string]struct{})

	for _, l := range p.importLocals {
		if IsSynthetic(l.name) {
			continue
		}

		if _, dup := imports[l.name]; dup {
			return p.fail(l.offset, "duplicate import binding %q", l.name)
		}

		if _, declared := p.topLevel[l.name]; declared {
			return p.fail(l.offset, "import binding %q is also declared in this module", l.name)
		}

		imports[l.name] = struct{}{}
	}

	for _, l := range p.exportLocals {
		_, declared := p.topLevel[l.name]
		_, imported := imports[l.name]

		if !declared && !imported {
			return p.fail(l.offset, "exported name %q is not declared in this module", l.name)
		}
	}

	return nil
}

// unquote decodes a string literal token.
func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}

	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, "\\") {
		return body
	}

	var sb strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)

			continue
		}

		i++

		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
		case 'x':
			if i+3 <= len(body) {
				var r rune
				_, err := fmt.Sscanf(body[i+1:i+3], "%x", &r)
				if err == nil {
					sb.WriteRune(r)
					i += 2

					continue
				}
			}

			sb.WriteByte('x')
		case 'u':
			r, n := decodeUnicodeEscape(body[i+1:])
			if n > 0 {
				sb.WriteRune(r)
				i += n

				continue
			}

			sb.WriteByte('u')
		default:
			sb.WriteByte(body[i])
		}
	}

	return sb.String()
}

// decodeUnicodeEscape reads XXXX or {X...} and returns the rune and the
// number of bytes consumed.
func decodeUnicodeEscape(s string) (rune, int) {
	var (
		r   rune
		hex string
		n   int
	)

	switch {
	case strings.HasPrefix(s, "{"):
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0
		}

		hex, n = s[1:end], end+1
	case len(s) >= 4:
		hex, n = s[:4], 4
	default:
		return 0, 0
	}

	_, err := fmt.Sscanf(hex, "%x", &r)
	if err != nil {
		return 0, 0
	}

	return r, n
}
