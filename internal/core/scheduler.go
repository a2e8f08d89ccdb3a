package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"buildforge/internal/types"
)

// NodeOutcome is what running one build node produced. Err nil means
// the node is packaged and Meta is registered in the content store.
type NodeOutcome struct {
	Meta     types.ResultMeta
	Warnings []string
	Output   string
	Stage    types.FailStage
	Err      error
}

// NodeRunner executes one build node end to end: provision, build,
// package. depVersions maps each declared dependency to the version
// packaged for it during the current run.
type NodeRunner interface {
	RunNode(ctx context.Context, result types.ResultDescriptor, depVersions map[string]string) NodeOutcome
}

type SchedulerOptions struct {
	Workers  int
	FailFast bool
}

// Scheduler walks a result graph with a fixed-size worker pool. Ready
// nodes are dispatched in declaration order so build logs are
// reproducible for a given worker count; completion order across
// workers is not guaranteed.
type Scheduler struct {
	Runner  NodeRunner
	Options SchedulerOptions
}

func NewScheduler(runner NodeRunner, opts SchedulerOptions) Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return Scheduler{Runner: runner, Options: opts}
}

type completion struct {
	name     string
	outcome  NodeOutcome
	duration time.Duration
}

func (s Scheduler) Run(ctx context.Context, project types.Project, graph Graph) types.RunReport {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	states := map[string]types.NodeState{}
	reports := map[string]*types.NodeReport{}
	metas := map[string]types.ResultMeta{}
	for _, name := range graph.Nodes() {
		result, _ := project.Result(name)
		reports[name] = &types.NodeReport{Result: name, Version: result.Version}
		if len(graph.Dependencies(name)) == 0 {
			states[name] = types.NodeStateReady
		} else {
			states[name] = types.NodeStatePending
		}
	}

	done := make(chan completion)
	inFlight := 0
	aborted := false

	dispatch := func() {
		for !aborted && inFlight < s.Options.Workers {
			name, ok := nextReady(graph, states)
			if !ok {
				return
			}
			states[name] = types.NodeStateProvisioning
			result, _ := project.Result(name)
			depVersions := map[string]string{}
			for _, dep := range graph.Dependencies(name) {
				depVersions[dep] = metas[dep].Version
			}
			inFlight++
			go func() {
				started := time.Now()
				outcome := s.Runner.RunNode(runCtx, result, depVersions)
				done <- completion{name: name, outcome: outcome, duration: time.Since(started)}
			}()
		}
	}

	for {
		dispatch()
		if inFlight == 0 {
			break
		}
		c := <-done
		inFlight--
		report := reports[c.name]
		report.Duration = c.duration
		report.Warnings = append(report.Warnings, c.outcome.Warnings...)
		report.Output = c.outcome.Output

		if c.outcome.Err == nil {
			states[c.name] = types.NodeStatePackaged
			metas[c.name] = c.outcome.Meta
			report.State = types.NodeStatePackaged
			for _, dependent := range graph.Dependents(c.name) {
				if states[dependent] == types.NodeStatePending && depsPackaged(graph, states, dependent) {
					states[dependent] = types.NodeStateReady
				}
			}
			log.Debug().Str("result", c.name).Msg("node packaged")
			continue
		}

		if aborted && errors.Is(c.outcome.Err, context.Canceled) {
			states[c.name] = types.NodeStateCancelled
			report.State = types.NodeStateCancelled
			continue
		}
		states[c.name] = types.NodeStateFailed
		report.State = types.NodeStateFailed
		report.Stage = c.outcome.Stage
		report.Error = c.outcome.Err.Error()
		log.Warn().Str("result", c.name).Str("stage", string(c.outcome.Stage)).
			Err(c.outcome.Err).Msg("node failed")

		for _, name := range graph.TransitiveDependents(c.name) {
			if !states[name].Terminal() && states[name] != types.NodeStateProvisioning {
				states[name] = types.NodeStateSkipped
				reports[name].State = types.NodeStateSkipped
				reports[name].Error = "dependency " + c.name + " failed"
			}
		}
		if s.Options.FailFast && !aborted {
			aborted = true
			cancel()
			for name, state := range states {
				if state == types.NodeStatePending || state == types.NodeStateReady {
					states[name] = types.NodeStateCancelled
					reports[name].State = types.NodeStateCancelled
				}
			}
		}
	}

	report := types.RunReport{Status: types.RunStatusSucceeded}
	if aborted {
		report.Status = types.RunStatusAborted
	}
	for _, name := range graph.Nodes() {
		node := reports[name]
		if node.State == "" {
			node.State = states[name]
		}
		if node.State != types.NodeStatePackaged && report.Status == types.RunStatusSucceeded {
			report.Status = types.RunStatusPartial
		}
		report.Nodes = append(report.Nodes, *node)
	}
	return report
}

// nextReady picks the ready node earliest in declaration order.
func nextReady(graph Graph, states map[string]types.NodeState) (string, bool) {
	for _, name := range graph.Nodes() {
		if states[name] == types.NodeStateReady {
			return name, true
		}
	}
	return "", false
}

func depsPackaged(graph Graph, states map[string]types.NodeState, name string) bool {
	for _, dep := range graph.Dependencies(name) {
		if states[dep] != types.NodeStatePackaged {
			return false
		}
	}
	return true
}
