package version_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/jsbundle/pkg/version"
)

func TestGet(t *testing.T) {
	t.Parallel()

	info := version.Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), "jsbundle "+info.Version)
}
