package core

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/types"
)

// Graph is the dependency DAG over a project's results. Node order is
// declaration order, which drives deterministic scheduling.
type Graph struct {
	order      []string
	deps       map[string][]string
	dependents map[string][]string
}

// BuildGraph constructs the graph and rejects dependency cycles. Every
// dependency name must already be known to exist (ValidateProject
// checks referential integrity first).
func BuildGraph(project types.Project) (Graph, error) {
	graph := Graph{
		deps:       map[string][]string{},
		dependents: map[string][]string{},
	}
	for _, result := range project.Results {
		graph.order = append(graph.order, result.Name)
		graph.deps[result.Name] = append([]string(nil), result.Depends...)
		for _, dep := range result.Depends {
			graph.dependents[dep] = append(graph.dependents[dep], result.Name)
		}
	}
	if cycle := graph.findCycle(); len(cycle) > 0 {
		return Graph{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("dependency cycle: " + strings.Join(cycle, " -> "))
	}
	return graph, nil
}

func (g Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

func (g Graph) Dependencies(name string) []string {
	return append([]string(nil), g.deps[name]...)
}

func (g Graph) Dependents(name string) []string {
	return append([]string(nil), g.dependents[name]...)
}

// TransitiveDependents returns every node downstream of name, in
// declaration order.
func (g Graph) TransitiveDependents(name string) []string {
	seen := map[string]bool{}
	var walk func(string)
	walk = func(node string) {
		for _, dep := range g.dependents[node] {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(name)
	var out []string
	for _, node := range g.order {
		if seen[node] {
			out = append(out, node)
		}
	}
	return out
}

// TopoOrder returns a topological order of the graph. Ties among nodes
// whose dependencies are all satisfied break by declaration order, so
// the order is stable across runs.
func (g Graph) TopoOrder() []string {
	remaining := map[string]int{}
	for _, node := range g.order {
		remaining[node] = len(g.deps[node])
	}
	done := map[string]bool{}
	var out []string
	for len(out) < len(g.order) {
		progressed := false
		for _, node := range g.order {
			if done[node] || remaining[node] != 0 {
				continue
			}
			done[node] = true
			out = append(out, node)
			for _, dep := range g.dependents[node] {
				remaining[dep]--
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

// findCycle returns one dependency cycle as a path of names ending with
// the node it started from, or nil when the graph is acyclic.
func (g Graph) findCycle() []string {
	const (
		unseen = 0
		active = 1
		closed = 2
	)
	state := map[string]int{}
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(node string) bool {
		state[node] = active
		stack = append(stack, node)
		for _, dep := range g.deps[node] {
			switch state[dep] {
			case active:
				start := 0
				for i, name := range stack {
					if name == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), stack[start:]...), dep)
				return true
			case unseen:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = closed
		return false
	}

	for _, node := range g.order {
		if state[node] == unseen && visit(node) {
			return cycle
		}
	}
	return nil
}
