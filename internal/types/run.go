package types

import (
	"path/filepath"
	"time"
)

// Verification tags fetched content with its trust level. Content is
// Verified only when a declared checksum matched the payload.
type Verification struct {
	Level TrustLevel
	SHA1  string
}

func Verified(sha1 string) Verification {
	return Verification{Level: TrustVerified, SHA1: sha1}
}

func Unverified() Verification {
	return Verification{Level: TrustUnverified}
}

// Content is the payload of one fetch together with its trust tag.
type Content struct {
	Bytes        []byte
	Verification Verification
}

// Sandbox is an ephemeral filesystem tree owned exclusively by one
// in-flight build. The fixed layout below the root is addressed through
// the accessor methods.
type Sandbox struct {
	Root   string
	Result string
}

func (s Sandbox) BuildDir() string  { return filepath.Join(s.Root, "build") }
func (s Sandbox) RootDir() string   { return filepath.Join(s.Root, "root") }
func (s Sandbox) EnvDir() string    { return filepath.Join(s.Root, "env") }
func (s Sandbox) InitDir() string   { return filepath.Join(s.Root, "init") }
func (s Sandbox) ScriptDir() string { return filepath.Join(s.Root, "script") }
func (s Sandbox) InDir() string     { return filepath.Join(s.Root, "in") }
func (s Sandbox) DepDir() string    { return filepath.Join(s.Root, "dep") }
func (s Sandbox) OutDir() string    { return filepath.Join(s.Root, "out") }

// ResultMeta is the metadata attached to a packaged result bundle.
type ResultMeta struct {
	Name           string            `yaml:"name"`
	Version        string            `yaml:"version"`
	DescriptorHash string            `yaml:"descriptor_hash"`
	ContentSHA256  string            `yaml:"content_sha256"`
	Dependencies   map[string]string `yaml:"dependencies,omitempty"`
	CreatedAt      time.Time         `yaml:"created_at"`
}

// ContentHandle points at a registered result bundle in the store.
type ContentHandle struct {
	BundlePath string
	Meta       ResultMeta
}

// NodeReport is the per-result outcome of a run.
type NodeReport struct {
	Result   string
	Version  string
	State    NodeState
	Stage    FailStage
	Error    string
	Output   string
	Warnings []string
	Duration time.Duration
}

// RunReport aggregates the outcome of a whole graph evaluation.
type RunReport struct {
	Status RunStatus
	Nodes  []NodeReport
}

func (r RunReport) Node(name string) (NodeReport, bool) {
	for _, n := range r.Nodes {
		if n.Result == name {
			return n, true
		}
	}
	return NodeReport{}, false
}
