package launcher

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// TranslatePath converts a POSIX path to its Windows form for a wine-hosted
// engine, shelling out to winepath once per path (spec.md §4.1). Failures
// are fatal: a mistranslated path would make the engine fail to find the
// map/replay with a confusing error, so callers should not swallow this.
func TranslatePath(posixPath string) (string, error) {
	cmd := exec.Command("winepath", "-w", posixPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("launcher: wine path translation failed for %s: %w", posixPath, err)
	}
	return strings.TrimSpace(out.String()), nil
}
