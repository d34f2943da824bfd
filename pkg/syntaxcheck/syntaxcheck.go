// Package syntaxcheck validates JavaScript sources against the full
// tree-sitter grammar. The bundler's own parser only understands module
// structure, so strict builds run this first to reject code that would
// otherwise pass through as opaque text.
package syntaxcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alexaandru/go-sitter-forest/javascript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
)

const errorNodeType = "ERROR"

// snippetLen bounds the source excerpt quoted in a diagnostic.
const snippetLen = 24

var errPoolType = errors.New("syntaxcheck: unexpected parser type in pool")

// Checker parses sources with tree-sitter. It is safe for concurrent use.
type Checker struct {
	pool sync.Pool
}

// New creates a Checker for the JavaScript grammar.
func New() *Checker {
	lang := sitter.NewLanguage(javascript.GetLanguage())

	return &Checker{
		pool: sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(lang)

				return p
			},
		},
	}
}

// Check returns a *jsparse.ParseError at the first syntax error in src, or
// nil when the grammar accepts it.
func (c *Checker) Check(ctx context.Context, path, src string) error {
	p, ok := c.pool.Get().(*sitter.Parser)
	if !ok {
		return errPoolType
	}

	defer c.pool.Put(p)

	tree, err := p.ParseString(ctx, nil, []byte(src))
	if err != nil {
		return fmt.Errorf("syntaxcheck %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil
	}

	bad := firstError(root)
	if bad.IsNull() {
		return nil
	}

	offset := int(bad.StartByte())

	return jsparse.NewParseError(path, src, offset, "syntax error near %q", excerpt(src, offset))
}

// firstError returns the first ERROR node in document order.
func firstError(n sitter.Node) sitter.Node {
	if n.Type() == errorNodeType {
		return n
	}

	for idx := range n.NamedChildCount() {
		found := firstError(n.NamedChild(idx))
		if !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}

func excerpt(src string, offset int) string {
	if offset >= len(src) {
		return ""
	}

	end := min(offset+snippetLen, len(src))

	for i := offset; i < end; i++ {
		if src[i] == '\n' {
			end = i

			break
		}
	}

	return src[offset:end]
}
