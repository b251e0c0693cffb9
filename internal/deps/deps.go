package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary reelforge shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on PATH. Path is the resolved
// executable when Available is true; Detail explains a failure otherwise.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves every requirement, preserving order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = checkBinary(req)
	}
	return results
}

func checkBinary(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	switch {
	case err != nil && req.Optional:
		status.Detail = fmt.Sprintf("binary %q not found (optional)", status.Command)
	case err != nil:
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	default:
		status.Path = path
		status.Available = true
	}
	return status
}
