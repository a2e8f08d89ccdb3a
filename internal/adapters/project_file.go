package adapters

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"buildforge/internal/ports"
	"buildforge/internal/types"
)

// ProjectFileAdapter loads a project from its descriptor files:
// project.yaml, chroot.yaml, sources/*.yaml and results/*.yaml.
// Files are read in sorted name order; that order is the declaration
// order the scheduler uses.
type ProjectFileAdapter struct{}

func NewProjectFileAdapter() ProjectFileAdapter {
	return ProjectFileAdapter{}
}

func (a ProjectFileAdapter) LoadProject(root string) (types.Project, error) {
	project := types.Project{Root: root}

	if err := a.loadYAML(filepath.Join(root, "project.yaml"), &project.Config, true); err != nil {
		return types.Project{}, err
	}
	if err := a.loadYAML(filepath.Join(root, "chroot.yaml"), &project.Chroot, false); err != nil {
		return types.Project{}, err
	}

	sourcePaths, err := descriptorFiles(filepath.Join(root, "sources"))
	if err != nil {
		return types.Project{}, err
	}
	for _, path := range sourcePaths {
		var source types.SourceDescriptor
		if err := a.loadYAML(path, &source, true); err != nil {
			return types.Project{}, err
		}
		if source.Name == "" {
			source.Name = descriptorName(path)
		}
		project.Sources = append(project.Sources, source)
	}

	resultPaths, err := descriptorFiles(filepath.Join(root, "results"))
	if err != nil {
		return types.Project{}, err
	}
	for _, path := range resultPaths {
		var result types.ResultDescriptor
		if err := a.loadYAML(path, &result, true); err != nil {
			return types.Project{}, err
		}
		if result.Name == "" {
			result.Name = descriptorName(path)
		}
		project.Results = append(project.Results, result)
	}

	return project, nil
}

func (a ProjectFileAdapter) loadYAML(path string, out any, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("descriptor not found: " + path).
			WithCause(err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse descriptor yaml: " + path).
			WithCause(err)
	}
	return nil
}

func descriptorFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read descriptor directory: " + dir).
			WithCause(err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func descriptorName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".yaml")
	return strings.TrimSuffix(base, ".yml")
}

var _ ports.ProjectLoaderPort = ProjectFileAdapter{}
