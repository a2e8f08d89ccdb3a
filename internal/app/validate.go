package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	root := strings.TrimSpace(req.ProjectRoot)
	if root == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project root is required")
	}
	project, _, err := s.loadProject(ctx, root)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{
		ProjectName: project.Config.Name,
		Sources:     len(project.Sources),
		Groups:      len(project.Chroot.Groups),
		Results:     len(project.Results),
	}, nil
}
