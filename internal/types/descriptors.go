package types

// ServerConfig names a location-addressable content server. URL schemes
// understood by the transport layer are http, https and file.
type ServerConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ProjectDefaults carries project-level defaults used when a value is
// not explicitly provided via flags or environment variables. Embedding
// defaults in the project descriptor avoids repetitive CLI flags.
type ProjectDefaults struct {
	Workers    int  `yaml:"workers,omitempty"`
	FailFast   bool `yaml:"fail_fast,omitempty"`
	KeepFailed bool `yaml:"keep_failed,omitempty"`
}

type ProjectConfig struct {
	Name     string          `yaml:"name"`
	Servers  []ServerConfig  `yaml:"servers"`
	Defaults ProjectDefaults `yaml:"defaults,omitempty"`
}

// FileEntry declares one fetchable file and how it is placed into a
// sandbox. Exactly one of Unpack, Patch or Copy may be set; chroot
// archive entries set none of them (they are always extracted).
type FileEntry struct {
	Server   string `yaml:"server,omitempty"`
	Location string `yaml:"location"`
	SHA1     string `yaml:"sha1,omitempty"`

	// Unpack names the top-level directory the archive creates under
	// the sandbox's build area.
	Unpack string `yaml:"unpack,omitempty"`

	// Patch holds the strip level for a unified-diff entry. A pointer
	// distinguishes an absent field from an explicit level 0.
	Patch *int `yaml:"patch,omitempty"`

	// Copy holds the destination path, relative to the sandbox root,
	// the fetched file is copied to verbatim.
	Copy string `yaml:"copy,omitempty"`
}

// Action returns the placement action of the entry, or FileActionNone
// when no action field is set.
func (e FileEntry) Action() FileAction {
	switch {
	case e.Unpack != "":
		return FileActionUnpack
	case e.Patch != nil:
		return FileActionPatch
	case e.Copy != "":
		return FileActionCopy
	default:
		return FileActionNone
	}
}

// actionCount counts how many action fields are set, for validation of
// the mutual-exclusivity rule.
func (e FileEntry) ActionCount() int {
	count := 0
	if e.Unpack != "" {
		count++
	}
	if e.Patch != nil {
		count++
	}
	if e.Copy != "" {
		count++
	}
	return count
}

type SourceDescriptor struct {
	Name     string            `yaml:"name"`
	Type     SourceType        `yaml:"type"`
	Server   string            `yaml:"server,omitempty"`
	Licences []string          `yaml:"licences,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Files    []FileEntry       `yaml:"file"`
}

type ChrootGroup struct {
	Name  string      `yaml:"name"`
	Files []FileEntry `yaml:"files"`
}

type ChrootDescriptor struct {
	DefaultGroups []string      `yaml:"default_groups,omitempty"`
	Groups        []ChrootGroup `yaml:"groups"`
}

// EnvBinding is a build-time variable. Only exportable bindings reach
// the build script's process environment; all bindings are written as
// files under the sandbox env area.
type EnvBinding struct {
	Value  string `yaml:"value"`
	Export bool   `yaml:"export,omitempty"`
}

type ResultDescriptor struct {
	Name    string                `yaml:"name"`
	Version string                `yaml:"version"`
	Sources []string              `yaml:"sources,omitempty"`
	Depends []string              `yaml:"depends,omitempty"`
	Chroot  []string              `yaml:"chroot,omitempty"`
	Env     map[string]EnvBinding `yaml:"env,omitempty"`
	Script  string                `yaml:"script"`

	// TimeoutSec bounds the build step; zero means no timeout.
	TimeoutSec int `yaml:"timeout_sec,omitempty"`
}

// Project is the validated in-memory model of a project root. Slice
// order is declaration order and drives deterministic scheduling.
type Project struct {
	Root    string
	Config  ProjectConfig
	Sources []SourceDescriptor
	Chroot  ChrootDescriptor
	Results []ResultDescriptor
}

func (p Project) Server(name string) (ServerConfig, bool) {
	for _, s := range p.Config.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return ServerConfig{}, false
}

func (p Project) Source(name string) (SourceDescriptor, bool) {
	for _, s := range p.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceDescriptor{}, false
}

func (p Project) Group(name string) (ChrootGroup, bool) {
	for _, g := range p.Chroot.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return ChrootGroup{}, false
}

func (p Project) Result(name string) (ResultDescriptor, bool) {
	for _, r := range p.Results {
		if r.Name == name {
			return r, true
		}
	}
	return ResultDescriptor{}, false
}

// GroupsFor resolves the chroot groups a result uses, falling back to
// the project's default groups when the result declares none.
func (p Project) GroupsFor(result ResultDescriptor) []string {
	if len(result.Chroot) > 0 {
		return result.Chroot
	}
	return p.Chroot.DefaultGroups
}
