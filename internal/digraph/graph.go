// Package digraph builds and analyzes the task dependency graph of a
// workflow: cycle detection, topological ordering, and parallel levels.
package digraph

import (
	"fmt"
	"sort"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// Graph is the dependency graph of a workflow's tasks.
type Graph struct {
	tasks map[string]model.TaskConfig
	// deps[name] is the set of tasks name depends on.
	deps map[string]map[string]struct{}
	// dependents[name] is the set of tasks that depend on name.
	dependents map[string]map[string]struct{}
	order      []string // insertion order, for deterministic iteration
}

// Build constructs a Graph from a workflow's task list. It assumes
// config.Validate has already rejected duplicate names; a reference to an
// unknown dependency returns MissingDependency, and a cycle returns
// CycleDetected.
func Build(tasks []model.TaskConfig) (*Graph, error) {
	g := &Graph{
		tasks:      make(map[string]model.TaskConfig, len(tasks)),
		deps:       make(map[string]map[string]struct{}, len(tasks)),
		dependents: make(map[string]map[string]struct{}, len(tasks)),
	}

	for _, t := range tasks {
		g.tasks[t.Name] = t
		g.order = append(g.order, t.Name)
		g.deps[t.Name] = make(map[string]struct{})
		if _, ok := g.dependents[t.Name]; !ok {
			g.dependents[t.Name] = make(map[string]struct{})
		}
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := g.tasks[dep]; !ok {
				return nil, coreerr.MissingDependency(t.Name, dep)
			}
			g.deps[t.Name][dep] = struct{}{}
			if _, ok := g.dependents[dep]; !ok {
				g.dependents[dep] = make(map[string]struct{})
			}
			g.dependents[dep][t.Name] = struct{}{}
		}
	}

	if cyclePath, ok := g.findCycle(); ok {
		return nil, coreerr.CycleDetected(cyclePath)
	}

	return g, nil
}

// Task returns the config for a named task.
func (g *Graph) Task(name string) (model.TaskConfig, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// Dependencies returns the names a task depends on, sorted.
func (g *Graph) Dependencies(name string) []string {
	return sortedKeys(g.deps[name])
}

// Dependents returns the names that depend on a task, sorted.
func (g *Graph) Dependents(name string) []string {
	return sortedKeys(g.dependents[name])
}

// TopologicalSort returns task names in an order where every task appears
// after all of its dependencies (Kahn's algorithm).
func (g *Graph) TopologicalSort() []string {
	inDegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		inDegree[name] = len(g.deps[name])
	}

	var ready []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var result []string
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		result = append(result, name)

		var newlyReady []string
		for dependent := range g.dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
		sort.Strings(ready)
	}

	return result
}

// ParallelLevels partitions tasks into levels by longest path from a
// source node: a task's level is one greater than the maximum level of
// its dependencies. Tasks in the same level have no dependency relation
// and may run concurrently.
func (g *Graph) ParallelLevels() [][]string {
	levels := make(map[string]int, len(g.order))
	var calc func(name string) int
	calc = func(name string) int {
		if lvl, ok := levels[name]; ok {
			return lvl
		}
		maxDepLevel := -1
		for dep := range g.deps[name] {
			if lvl := calc(dep); lvl > maxDepLevel {
				maxDepLevel = lvl
			}
		}
		lvl := maxDepLevel + 1
		levels[name] = lvl
		return lvl
	}

	maxLevel := 0
	for _, name := range g.order {
		lvl := calc(name)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	result := make([][]string, maxLevel+1)
	for _, name := range g.order {
		lvl := levels[name]
		result[lvl] = append(result[lvl], name)
	}
	for i := range result {
		sort.Strings(result[i])
	}
	return result
}

// findCycle runs DFS from every unvisited node, reporting the first cycle
// found as the path that closes it (e.g. ["a", "b", "c", "a"]).
func (g *Graph) findCycle() ([]string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))
	parent := make(map[string]string, len(g.order))

	var dfs func(name string) ([]string, bool)
	dfs = func(name string) ([]string, bool) {
		color[name] = gray
		deps := sortedKeys(g.deps[name])
		for _, dep := range deps {
			switch color[dep] {
			case white:
				parent[dep] = name
				if path, found := dfs(dep); found {
					return path, true
				}
			case gray:
				path := []string{dep}
				cur := name
				for cur != dep {
					path = append(path, cur)
					cur = parent[cur]
				}
				path = append(path, dep)
				reverse(path)
				return path, true
			}
		}
		color[name] = black
		return nil, false
	}

	for _, name := range g.order {
		if color[name] == white {
			if path, found := dfs(name); found {
				return path, true
			}
		}
	}
	return nil, false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// String implements fmt.Stringer for debugging.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%d tasks)", len(g.tasks))
}
