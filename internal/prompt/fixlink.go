package prompt

import (
	"fmt"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/solver"
)

var fixChoices = []string{
	"Skip (leave it as it is)",
	"Restore (recreate the link udot's state remembers)",
	"Take over (adopt whatever is there now into the state store)",
	"Untrack (forget this link, udot stops managing it)",
}

// ResolveFix presents the S/R/T/U drifted-link menu
// StateFilesystemDiffSolver calls for every link whose on-disk state
// no longer matches the store, and returns the chosen FixAction.
func ResolveFix(profile, message string, saved model.LinkDescriptor) solver.FixAction {
	title := fmt.Sprintf("%s (profile %q, link %s)", message, profile, saved.Path)
	choice, err := runMenu(title, fixChoices)
	if err != nil || choice < 0 {
		return solver.FixSkip
	}
	switch choice {
	case 1:
		return solver.FixRestore
	case 2:
		return solver.FixTakeOver
	case 3:
		return solver.FixUntrack
	default:
		return solver.FixSkip
	}
}
