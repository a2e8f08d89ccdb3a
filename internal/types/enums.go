package types

type SourceType string

const (
	SourceTypeFiles SourceType = "file-collection"
)

type FileAction string

const (
	FileActionNone   FileAction = ""
	FileActionUnpack FileAction = "unpack"
	FileActionPatch  FileAction = "patch"
	FileActionCopy   FileAction = "copy"
)

type TrustLevel string

const (
	TrustVerified   TrustLevel = "verified"
	TrustUnverified TrustLevel = "unverified"
)

type NodeState string

const (
	NodeStatePending      NodeState = "pending"
	NodeStateReady        NodeState = "ready"
	NodeStateProvisioning NodeState = "provisioning"
	NodeStateBuilding     NodeState = "building"
	NodeStatePackaging    NodeState = "packaging"
	NodeStatePackaged     NodeState = "packaged"
	NodeStateFailed       NodeState = "failed"
	NodeStateSkipped      NodeState = "skipped-dependency"
	NodeStateCancelled    NodeState = "cancelled"
)

// Terminal reports whether a node in this state will never change state
// again during the current run.
func (s NodeState) Terminal() bool {
	switch s {
	case NodeStatePackaged, NodeStateFailed, NodeStateSkipped, NodeStateCancelled:
		return true
	default:
		return false
	}
}

type FailStage string

const (
	FailStageNone      FailStage = ""
	FailStageProvision FailStage = "provision"
	FailStageBuild     FailStage = "build"
	FailStagePackage   FailStage = "package"
)

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "all-succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusAborted   RunStatus = "aborted"
)
