package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ncanimate/internal/procexec"
)

// Requirement is an external command a generation run may execute.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement can be executed.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves every requirement on PATH, or as a path when the
// command contains a separator.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

// CommandName extracts the program of a command line template, honouring
// quotes. Placeholders left in the program name are kept as is.
func CommandName(line string) string {
	args := procexec.ParseCommandLine(line)
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Dedupe drops requirements whose command already appeared, keeping the
// first and marking it required when any duplicate is required.
func Dedupe(requirements []Requirement) []Requirement {
	index := map[string]int{}
	out := make([]Requirement, 0, len(requirements))
	for _, req := range requirements {
		key := strings.TrimSpace(req.Command)
		if i, ok := index[key]; ok && key != "" {
			if !req.Optional {
				out[i].Optional = false
			}
			continue
		}
		index[key] = len(out)
		out = append(out, req)
	}
	return out
}
