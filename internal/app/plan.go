package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/core"
)

// Plan reports the deterministic build order plus dry-run composition
// diagnostics (copy conflicts, unverified content) without touching the
// network or the filesystem beyond the descriptors.
func (s Service) Plan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	root := strings.TrimSpace(req.ProjectRoot)
	if root == "" {
		return PlanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project root is required")
	}
	project, graph, err := s.loadProject(ctx, root)
	if err != nil {
		return PlanResult{}, err
	}
	project, graph, err = restrictResults(project, graph, req.Results)
	if err != nil {
		return PlanResult{}, err
	}

	plan := PlanResult{ProjectName: project.Config.Name}
	for _, name := range graph.TopoOrder() {
		result, _ := project.Result(name)
		plan.Order = append(plan.Order, PlanStep{
			Result:    name,
			Version:   result.Version,
			DependsOn: graph.Dependencies(name),
		})
		overlay := core.PlanOverlay(project, result)
		for _, conflict := range overlay.Conflicts {
			plan.Conflicts = append(plan.Conflicts,
				fmt.Sprintf("%s: %s declared by %s and %s", name, conflict.Dest, conflict.Earlier, conflict.Later))
		}
		for _, warning := range overlay.Untrusted {
			plan.Untrusted = append(plan.Untrusted, name+": "+warning)
		}
	}
	return plan, nil
}
