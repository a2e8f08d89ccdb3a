package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"buildforge/internal/shared"
)

// ApplyPatch applies a unified diff against dir at the given strip
// level using patch(1), the same tool project patches are authored
// for. --batch keeps it non-interactive; a hunk that does not apply
// cleanly fails the whole call.
func ApplyPatch(ctx context.Context, patchData []byte, dir string, level int) error {
	tmp, err := os.CreateTemp("", "buildforge-patch-*.diff")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage patch file").
			WithCause(err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(patchData); err != nil {
		tmp.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write patch file").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close patch file").
			WithCause(err)
	}

	cmd := exec.CommandContext(ctx, "patch",
		fmt.Sprintf("-p%d", level),
		"--batch",
		"--no-backup-if-mismatch",
		"--directory", dir,
		"--input", tmp.Name(),
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("patch did not apply cleanly").
			WithCause(shared.CommandError(output.Bytes(), err))
	}
	return nil
}
