package app

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/core"
	"buildforge/internal/types"
)

// restrictResults narrows a project to the named results plus their
// transitive dependencies. An empty filter keeps the whole graph.
func restrictResults(project types.Project, graph core.Graph, names []string) (types.Project, core.Graph, error) {
	if len(names) == 0 {
		return project, graph, nil
	}
	needed := map[string]bool{}
	var mark func(string)
	mark = func(name string) {
		if needed[name] {
			return
		}
		needed[name] = true
		for _, dep := range graph.Dependencies(name) {
			mark(dep)
		}
	}
	for _, name := range names {
		if _, ok := project.Result(name); !ok {
			return types.Project{}, core.Graph{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("unknown result: " + name)
		}
		mark(name)
	}

	filtered := project
	filtered.Results = nil
	for _, result := range project.Results {
		if needed[result.Name] {
			filtered.Results = append(filtered.Results, result)
		}
	}
	filteredGraph, err := core.BuildGraph(filtered)
	if err != nil {
		return types.Project{}, core.Graph{}, err
	}
	return filtered, filteredGraph, nil
}
