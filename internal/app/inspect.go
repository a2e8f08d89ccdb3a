package app

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/adapters"
)

// Inspect describes one result node: its declared inputs and which
// versions of it the content store already holds.
func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	root := strings.TrimSpace(req.ProjectRoot)
	if root == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project root is required")
	}
	name := strings.TrimSpace(req.Result)
	if name == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("result name is required")
	}
	project, _, err := s.loadProject(ctx, root)
	if err != nil {
		return InspectResult{}, err
	}
	result, ok := project.Result(name)
	if !ok {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("unknown result: " + name)
	}

	licences := map[string]bool{}
	for _, sourceName := range result.Sources {
		source, _ := project.Source(sourceName)
		for _, licence := range source.Licences {
			licences[licence] = true
		}
	}
	var licenceList []string
	for licence := range licences {
		licenceList = append(licenceList, licence)
	}
	sort.Strings(licenceList)

	storeDir := strings.TrimSpace(req.StoreDir)
	if storeDir == "" {
		storeDir = filepath.Join(root, ".buildforge", "store")
	}
	store := adapters.NewDirStore(storeDir, s.Transport)
	versions, err := store.Versions(name)
	if err != nil {
		return InspectResult{}, err
	}

	return InspectResult{
		Name:             result.Name,
		Version:          result.Version,
		Script:           result.Script,
		Depends:          result.Depends,
		Sources:          result.Sources,
		ChrootGroups:     project.GroupsFor(result),
		Licences:         licenceList,
		PackagedVersions: versions,
	}, nil
}
