package ports

import "buildforge/internal/types"

type ProjectLoaderPort interface {
	// LoadProject parses every descriptor below root into a project
	// model. It does not validate cross references; core.ValidateProject
	// does.
	LoadProject(root string) (types.Project, error)
}
