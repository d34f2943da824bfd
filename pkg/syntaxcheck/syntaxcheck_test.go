package syntaxcheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/syntaxcheck"
)

func TestCheckAcceptsValidModule(t *testing.T) {
	t.Parallel()

	c := syntaxcheck.New()

	err := c.Check(context.Background(), "a.js", "import { x } from './x';\nexport const y = () => x + 1;\n")
	assert.NoError(t, err)
}

func TestCheckReportsPosition(t *testing.T) {
	t.Parallel()

	c := syntaxcheck.New()

	err := c.Check(context.Background(), "bad.js", "const a = 1;\n)))\n")
	require.ErrorIs(t, err, jsparse.ErrSyntax)

	var perr *jsparse.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.js", perr.Path)
	assert.Equal(t, 2, perr.Line)
}

func TestCheckConcurrent(t *testing.T) {
	t.Parallel()

	c := syntaxcheck.New()

	for range 4 {
		t.Run("worker", func(t *testing.T) {
			t.Parallel()

			for range 10 {
				assert.NoError(t, c.Check(context.Background(), "a.js", "let a = [1, 2, 3].map((v) => v * 2);"))
			}
		})
	}
}
