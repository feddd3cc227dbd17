package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/config"
)

func TestListReturnsAllTemplates(t *testing.T) {
	names := make([]string, 0)
	for _, info := range List() {
		names = append(names, info.Name)
		assert.NotEmpty(t, info.Description)
	}
	assert.ElementsMatch(t, []string{"minimal", "shell", "ssh", "http", "full"}, names)
}

func TestGetUnknownReturnsFalse(t *testing.T) {
	_, ok := Get("nonexistent")
	assert.False(t, ok)
}

func TestEveryTemplateParsesAndValidates(t *testing.T) {
	for _, name := range []string{"minimal", "shell", "ssh", "http", "full"} {
		yaml, ok := Get(name)
		require.True(t, ok, "template %q should exist", name)
		assert.True(t, strings.Contains(yaml, "tasks:"))

		wf, err := config.Parse([]byte(yaml))
		require.NoError(t, err, "template %q should parse and validate", name)
		assert.NotEmpty(t, wf.Tasks)
	}
}
