package core

import (
	"fmt"
	"path"

	"buildforge/internal/types"
)

// OverlayOp is one ordered step of sandbox composition, expressed over
// declared destination paths before any I/O happens.
type OverlayOp struct {
	Origin string // "group:<name>" or "source:<name>"
	Action types.FileAction
	Entry  types.FileEntry
	Dest   string // path relative to the sandbox root
}

// OverlayConflict records two operations that target the same path.
// The later one wins when the plan is materialized.
type OverlayConflict struct {
	Dest    string
	Earlier string
	Later   string
}

// OverlayPlan is the ordered-apply plan for one result's sandbox. It is
// pure bookkeeping: the provisioner materializes it, the plan operation
// only inspects it.
type OverlayPlan struct {
	GroupArchives []OverlayOp
	SourceOps     []OverlayOp
	Conflicts     []OverlayConflict
	Untrusted     []string
}

// PlanOverlay computes the composition plan for a result: chroot group
// archives in group order, then every source's file entries in declared
// order. Destination collisions between copy and unpack steps are
// reported as conflicts (last declared wins); entries without checksums
// are reported as untrusted.
func PlanOverlay(project types.Project, result types.ResultDescriptor) OverlayPlan {
	var plan OverlayPlan
	owners := map[string]string{}

	for _, groupName := range project.GroupsFor(result) {
		group, ok := project.Group(groupName)
		if !ok {
			continue
		}
		origin := "group:" + group.Name
		for _, entry := range group.Files {
			plan.GroupArchives = append(plan.GroupArchives, OverlayOp{
				Origin: origin,
				Entry:  entry,
				Dest:   "root",
			})
			if entry.SHA1 == "" {
				plan.Untrusted = append(plan.Untrusted,
					fmt.Sprintf("%s: archive %s has no checksum", origin, entry.Location))
			}
		}
	}

	for _, sourceName := range result.Sources {
		source, ok := project.Source(sourceName)
		if !ok {
			continue
		}
		origin := "source:" + source.Name
		for _, entry := range source.Files {
			op := OverlayOp{Origin: origin, Action: entry.Action(), Entry: entry}
			switch entry.Action() {
			case types.FileActionUnpack:
				op.Dest = path.Join("build", entry.Unpack)
			case types.FileActionCopy:
				op.Dest = path.Join("build", entry.Copy)
			case types.FileActionPatch:
				// Patches rewrite files in place; they do not claim a
				// destination of their own.
			}
			plan.SourceOps = append(plan.SourceOps, op)
			if entry.SHA1 == "" {
				plan.Untrusted = append(plan.Untrusted,
					fmt.Sprintf("%s: file %s has no checksum", origin, entry.Location))
			}
			if op.Dest == "" {
				continue
			}
			if earlier, taken := owners[op.Dest]; taken {
				plan.Conflicts = append(plan.Conflicts, OverlayConflict{
					Dest:    op.Dest,
					Earlier: earlier,
					Later:   origin,
				})
			}
			owners[op.Dest] = origin
		}
	}

	return plan
}
