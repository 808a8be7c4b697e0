package deploy

import "fmt"

// Phase identifies a step of the deployment state machine. Phases are
// strictly ordered and each gates the next.
type Phase int

const (
	PhaseAuthPreflight Phase = iota
	PhaseCapabilities
	PhaseCodeSync
	PhaseBuild
	PhaseValidation
	PhaseLaunch
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthPreflight:
		return "auth-preflight"
	case PhaseCapabilities:
		return "capability-detection"
	case PhaseCodeSync:
		return "code-sync"
	case PhaseBuild:
		return "remote-build"
	case PhaseValidation:
		return "validation"
	case PhaseLaunch:
		return "adapter-launch"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// PhaseError is a fatal deployment failure. It names the failing phase, the
// exact command attempted, and copy-pasteable remediation.
type PhaseError struct {
	Phase       Phase
	Command     string
	Remediation string
	Err         error
}

func (e *PhaseError) Error() string {
	msg := fmt.Sprintf("deployment failed at %s: %v", e.Phase, e.Err)
	if e.Command != "" {
		msg += fmt.Sprintf("\n  command: %s", e.Command)
	}
	if e.Remediation != "" {
		msg += fmt.Sprintf("\n  to fix:\n%s", e.Remediation)
	}
	return msg
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
