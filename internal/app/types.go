package app

import "buildforge/internal/types"

type ValidateRequest struct {
	ProjectRoot string
}

type ValidateResult struct {
	ProjectName string
	Sources     int
	Groups      int
	Results     int
}

type PlanRequest struct {
	ProjectRoot string
	Results     []string
}

type PlanStep struct {
	Result    string
	Version   string
	DependsOn []string
}

type PlanResult struct {
	ProjectName string
	Order       []PlanStep
	Conflicts   []string
	Untrusted   []string
}

type RunRequest struct {
	ProjectRoot string
	StoreDir    string
	WorkDir     string
	Results     []string
	Workers     int
	FailFast    bool
	KeepFailed  bool
}

type RunResult struct {
	Report types.RunReport
}

type InspectRequest struct {
	ProjectRoot string
	StoreDir    string
	Result      string
}

type InspectResult struct {
	Name             string
	Version          string
	Script           string
	Depends          []string
	Sources          []string
	ChrootGroups     []string
	Licences         []string
	PackagedVersions []string
}
