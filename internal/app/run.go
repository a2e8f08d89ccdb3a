package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"buildforge/internal/adapters"
	"buildforge/internal/core"
)

// Run evaluates the project's result graph: every node is provisioned,
// built and packaged in dependency order. Node failures are reported in
// the run result, not returned as an error; the error return covers
// descriptor problems only.
func (s Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	root := strings.TrimSpace(req.ProjectRoot)
	if root == "" {
		return RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project root is required")
	}
	project, graph, err := s.loadProject(ctx, root)
	if err != nil {
		return RunResult{}, err
	}
	project, graph, err = restrictResults(project, graph, req.Results)
	if err != nil {
		return RunResult{}, err
	}

	storeDir := strings.TrimSpace(req.StoreDir)
	if storeDir == "" {
		storeDir = filepath.Join(root, ".buildforge", "store")
	}
	workDir := strings.TrimSpace(req.WorkDir)
	if workDir == "" {
		workDir = filepath.Join(root, ".buildforge", "tmp")
	}
	workers := req.Workers
	if workers <= 0 {
		workers = project.Config.Defaults.Workers
	}
	failFast := req.FailFast || project.Config.Defaults.FailFast
	keepFailed := req.KeepFailed || project.Config.Defaults.KeepFailed

	store := adapters.NewDirStore(storeDir, s.Transport)
	packager := adapters.NewResultPackageAdapter(store)
	packager.Clock = s.Clock
	runner := &nodeRunner{
		project:     project,
		store:       store,
		provisioner: adapters.NewSandboxAdapter(store),
		executor:    s.Executor,
		packager:    packager,
		workDir:     workDir,
		keepFailed:  keepFailed,
	}

	scheduler := core.NewScheduler(runner, core.SchedulerOptions{
		Workers:  workers,
		FailFast: failFast,
	})
	log.Info().Str("project", project.Config.Name).Int("results", len(project.Results)).
		Int("workers", scheduler.Options.Workers).Bool("fail_fast", failFast).Msg("run starting")
	report := scheduler.Run(ctx, project, graph)
	log.Info().Str("status", string(report.Status)).Msg("run finished")
	return RunResult{Report: report}, nil
}
