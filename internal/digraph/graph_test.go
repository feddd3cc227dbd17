package digraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/model"
)

func shellTask(name string, deps ...string) model.TaskConfig {
	return model.TaskConfig{
		Name:      name,
		Type:      model.TaskTypeShell,
		DependsOn: deps,
		Shell:     &model.ShellConfig{Command: "/bin/echo"},
	}
}

func TestBuildSimpleChain(t *testing.T) {
	g, err := Build([]model.TaskConfig{
		shellTask("a"),
		shellTask("b", "a"),
		shellTask("c", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, g.TopologicalSort())
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, g.ParallelLevels())
}

func TestParallelLevelsDiamond(t *testing.T) {
	g, err := Build([]model.TaskConfig{
		shellTask("a"),
		shellTask("b", "a"),
		shellTask("c", "a"),
		shellTask("d", "b", "c"),
	})
	require.NoError(t, err)
	levels := g.ParallelLevels()
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levels[0])
	assert.Equal(t, []string{"b", "c"}, levels[1])
	assert.Equal(t, []string{"d"}, levels[2])
}

func TestBuildCyclic(t *testing.T) {
	_, err := Build([]model.TaskConfig{
		shellTask("a", "b"),
		shellTask("b", "a"),
	})
	require.Error(t, err)
}

func TestBuildSelfCycle(t *testing.T) {
	_, err := Build([]model.TaskConfig{
		shellTask("a", "a"),
	})
	require.Error(t, err)
}

func TestDisconnectedComponents(t *testing.T) {
	g, err := Build([]model.TaskConfig{
		shellTask("a"),
		shellTask("b"),
	})
	require.NoError(t, err)
	levels := g.ParallelLevels()
	require.Len(t, levels, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, levels[0])
}

func TestDependentsAndDependencies(t *testing.T) {
	g, err := Build([]model.TaskConfig{
		shellTask("a"),
		shellTask("b", "a"),
		shellTask("c", "a"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, g.Dependents("a"))
	assert.Equal(t, []string{"a"}, g.Dependencies("b"))
}

func TestMissingDependencyRejected(t *testing.T) {
	_, err := Build([]model.TaskConfig{
		shellTask("a", "ghost"),
	})
	require.Error(t, err)
}
