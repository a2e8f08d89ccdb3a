package core

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/types"
)

// ValidateProject checks structural and referential integrity of a
// loaded project: unique names, action exclusivity per file entry, and
// that every referenced server, source, chroot group and dependency
// exists. Cycle detection is BuildGraph's job.
func ValidateProject(ctx context.Context, project types.Project) error {
	assert.NotEmpty(ctx, project.Config.Name, "project name must be set")

	if len(project.Config.Servers) == 0 {
		return structural("project", project.Config.Name, "no servers declared")
	}
	serverNames := map[string]bool{}
	for _, server := range project.Config.Servers {
		if server.Name == "" || server.URL == "" {
			return structural("server", server.Name, "server needs name and url")
		}
		if serverNames[server.Name] {
			return structural("server", server.Name, "duplicate server name")
		}
		serverNames[server.Name] = true
	}

	sourceNames := map[string]bool{}
	for _, source := range project.Sources {
		if source.Name == "" {
			return structural("source", "", "source name must be set")
		}
		if sourceNames[source.Name] {
			return structural("source", source.Name, "duplicate source name")
		}
		sourceNames[source.Name] = true
		if source.Type != types.SourceTypeFiles {
			return structural("source", source.Name,
				fmt.Sprintf("unsupported source type %q", source.Type))
		}
		if source.Server != "" && !serverNames[source.Server] {
			return referential("source", source.Name, "server", source.Server)
		}
		if len(source.Files) == 0 {
			return structural("source", source.Name, "source declares no files")
		}
		for i, entry := range source.Files {
			if entry.Location == "" {
				return structural("source", source.Name,
					fmt.Sprintf("file %d has no location", i))
			}
			if entry.ActionCount() != 1 {
				return structural("source", source.Name,
					fmt.Sprintf("file %q must declare exactly one of unpack, patch, copy", entry.Location))
			}
			if entry.Server == "" && source.Server == "" {
				return structural("source", source.Name,
					fmt.Sprintf("file %q has no server and source declares no default", entry.Location))
			}
			if entry.Server != "" && !serverNames[entry.Server] {
				return referential("source", source.Name, "server", entry.Server)
			}
			if entry.Patch != nil && *entry.Patch < 0 {
				return structural("source", source.Name,
					fmt.Sprintf("file %q has negative patch level", entry.Location))
			}
		}
	}

	groupNames := map[string]bool{}
	for _, group := range project.Chroot.Groups {
		if group.Name == "" {
			return structural("chroot group", "", "group name must be set")
		}
		if groupNames[group.Name] {
			return structural("chroot group", group.Name, "duplicate group name")
		}
		groupNames[group.Name] = true
		if len(group.Files) == 0 {
			return structural("chroot group", group.Name, "group declares no archives")
		}
		for _, entry := range group.Files {
			if entry.Location == "" || entry.Server == "" {
				return structural("chroot group", group.Name, "archive needs server and location")
			}
			if !serverNames[entry.Server] {
				return referential("chroot group", group.Name, "server", entry.Server)
			}
			if entry.Action() != types.FileActionNone {
				return structural("chroot group", group.Name,
					fmt.Sprintf("archive %q must not declare a placement action", entry.Location))
			}
		}
	}
	for _, name := range project.Chroot.DefaultGroups {
		if !groupNames[name] {
			return referential("chroot", "default_groups", "group", name)
		}
	}

	resultNames := map[string]bool{}
	for _, result := range project.Results {
		resultNames[result.Name] = true
	}
	for _, result := range project.Results {
		if result.Name == "" {
			return structural("result", "", "result name must be set")
		}
		if result.Version == "" {
			return structural("result", result.Name, "result version must be set")
		}
		if result.Script == "" {
			return structural("result", result.Name, "result declares no build script")
		}
		for _, name := range result.Sources {
			if !sourceNames[name] {
				return referential("result", result.Name, "source", name)
			}
		}
		for _, name := range result.Depends {
			if !resultNames[name] {
				return referential("result", result.Name, "dependency", name)
			}
		}
		for _, name := range result.Chroot {
			if !groupNames[name] {
				return referential("result", result.Name, "chroot group", name)
			}
		}
	}
	duplicates := map[string]bool{}
	for _, result := range project.Results {
		if duplicates[result.Name] {
			return structural("result", result.Name, "duplicate result name")
		}
		duplicates[result.Name] = true
	}

	return nil
}

func structural(kind, name, msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("malformed %s %q: %s", kind, name, msg))
}

func referential(kind, name, refKind, refName string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%s %q references unknown %s %q", kind, name, refKind, refName))
}
