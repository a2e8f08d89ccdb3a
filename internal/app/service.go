package app

import (
	"context"
	"time"

	"buildforge/internal/adapters"
	"buildforge/internal/core"
	"buildforge/internal/ports"
	"buildforge/internal/types"
)

type Service struct {
	Loader    ports.ProjectLoaderPort
	Transport ports.TransportPort
	Executor  ports.ExecutorPort
	Clock     func() time.Time
}

func NewService() Service {
	return Service{
		Loader:    adapters.NewProjectFileAdapter(),
		Transport: adapters.NewTransportAdapter(),
		Executor:  adapters.NewScriptExecAdapter(),
		Clock:     time.Now,
	}
}

// loadProject loads, validates and graphs a project root. Every
// operation goes through here so descriptor errors surface before any
// work starts.
func (s Service) loadProject(ctx context.Context, root string) (types.Project, core.Graph, error) {
	project, err := s.Loader.LoadProject(root)
	if err != nil {
		return types.Project{}, core.Graph{}, err
	}
	if err := core.ValidateProject(ctx, project); err != nil {
		return types.Project{}, core.Graph{}, err
	}
	graph, err := core.BuildGraph(project)
	if err != nil {
		return types.Project{}, core.Graph{}, err
	}
	return project, graph, nil
}
