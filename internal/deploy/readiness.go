package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

// readinessState is the last observed pair of readiness signals.
type readinessState struct {
	RemoteBound    bool
	LocalReachable bool
	Attempts       int
}

func (s readinessState) String() string {
	return fmt.Sprintf("remote port bound=%v, locally reachable=%v after %d attempts",
		s.RemoteBound, s.LocalReachable, s.Attempts)
}

// waitReady polls two independent signals once per interval, up to the
// attempt ceiling: the device confirming the adapter is bound to its port,
// and a TCP probe from the invoking host reaching that port. Both must be
// true in the same attempt.
func (d *SSHDeployer) waitReady(ctx context.Context) error {
	// ss is preferred; netstat covers older images without iproute2.
	boundCheck := fmt.Sprintf(
		"ss -tln 2>/dev/null | grep -q ':%d ' || netstat -tln 2>/dev/null | grep -q ':%d '",
		d.target.AdapterPort, d.target.AdapterPort)

	var state readinessState
	for attempt := 1; attempt <= d.readinessAttempts; attempt++ {
		state.Attempts = attempt

		result, err := d.executor.Exec(ctx, boundCheck)
		if err != nil {
			return &PhaseError{
				Phase:   PhaseLaunch,
				Command: boundCheck,
				Err:     fmt.Errorf("readiness check failed: %w", err),
			}
		}
		state.RemoteBound = result.ExitCode == 0
		state.LocalReachable = d.dial(d.target.Host, d.target.AdapterPort) == nil

		d.log.Debug().Int("attempt", attempt).
			Bool("remote_bound", state.RemoteBound).
			Bool("local_reachable", state.LocalReachable).
			Msg("readiness poll")

		if state.RemoteBound && state.LocalReachable {
			return nil
		}

		if attempt < d.readinessAttempts {
			d.sleep(d.readinessInterval)
		}
	}

	// Timed out: include the adapter's own log tail so the failure is
	// diagnosable without another round trip.
	tail := d.adapterLogTail(ctx)
	err := fmt.Errorf("adapter did not become ready (%s)", state)
	if tail != "" {
		err = fmt.Errorf("%w\nadapter log tail:\n%s", err, tail)
	}
	return &PhaseError{
		Phase:       PhaseLaunch,
		Command:     boundCheck,
		Remediation: fmt.Sprintf("    ssh %s@%s 'cat %s'   # inspect the full adapter log", d.target.User, d.target.Host, constants.AdapterLogPath),
		Err:         err,
	}
}

// adapterLogTail fetches the last lines of the remote adapter log, best
// effort.
func (d *SSHDeployer) adapterLogTail(ctx context.Context) string {
	command := fmt.Sprintf("tail -n %d %s 2>/dev/null", constants.LogTailLines, constants.AdapterLogPath)
	result, err := d.executor.Exec(ctx, command)
	if err != nil || result.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}
