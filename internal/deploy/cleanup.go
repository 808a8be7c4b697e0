package deploy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

// Cleanup tears down the adapter process and deployment artifacts, best
// effort. It never returns an error: every failure is recorded in the result.
// Safe to call on a deployer whose Deploy never ran or partially failed.
//
// Files are removed only after process teardown has been attempted: deleting
// them first would let a still-running adapter regenerate them.
func (d *SSHDeployer) Cleanup(ctx context.Context) *CleanupResult {
	result := &CleanupResult{Success: true}
	fail := func(format string, args ...any) {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	d.message("Cleaning up device...")
	if err := d.connect(ctx); err != nil {
		fail("cannot reach device for cleanup: %v", err)
		return result
	}

	// Step 1: resolve the adapter pid from its marker file, falling back to
	// the pid recorded at launch. An unknown pid is not itself a failure;
	// the name-based sweep still runs.
	pid := d.resolvePID(ctx)

	if pid != 0 {
		// Step 2: graceful stop of the process and its direct children (the
		// adapter may run under a shell wrapper).
		d.stopProcess(ctx, pid, "TERM")
		d.sleep(d.gracefulStopWait)

		// Step 3: forceful stop if still present.
		if d.processAlive(ctx, pid) {
			d.stopProcess(ctx, pid, "KILL")
		}
	}

	// Step 4: name-based sweep catches detached or double-forked adapters
	// that evaded pid-based targeting; then pause for OS reaping.
	sweep := fmt.Sprintf("pkill -KILL -f %s 2>/dev/null || true", constants.AdapterProcessName)
	if _, err := d.executor.Exec(ctx, sweep); err != nil {
		fail("name-based kill sweep failed: %v", err)
	}
	d.sleep(d.reapPause)

	// Step 5: verification with zombie disambiguation. A zombie survivor is
	// guaranteed to be reaped, so it gets a bounded extra wait instead of an
	// error; only genuinely running or sleeping survivors are failures.
	survivors, err := d.survivingAdapters(ctx)
	if err != nil {
		fail("could not verify adapter shutdown: %v", err)
	} else if len(survivors) > 0 {
		checks := int(d.zombieWait / d.zombieInterval)
		for i := 0; i < checks && len(survivors) > 0 && anyZombie(survivors); i++ {
			d.sleep(d.zombieInterval)
			survivors, err = d.survivingAdapters(ctx)
			if err != nil {
				fail("could not re-verify adapter shutdown: %v", err)
				break
			}
		}
		for _, pid := range sortedPIDs(survivors) {
			state := survivors[pid]
			if isZombie(state) {
				// Pending reap; not independently actionable.
				continue
			}
			fail("adapter process %d still alive in state %q after kill escalation", pid, state)
		}
	}

	// Step 6: artifact removal, only after process teardown was attempted.
	remove := fmt.Sprintf("rm -rf %s %s %s",
		constants.RemoteScratchDir, constants.AdapterPidPath, constants.AdapterLogPath)
	removeResult, err := d.executor.Exec(ctx, remove)
	if err != nil {
		fail("failed to remove deployment artifacts: %v", err)
	} else if removeResult.ExitCode != 0 {
		fail("failed to remove deployment artifacts (exit %d): %s",
			removeResult.ExitCode, strings.TrimSpace(removeResult.Stderr))
	}

	return result
}

// resolvePID reads the adapter pid marker file, falling back to the pid
// recorded during Deploy. Returns 0 when no pid is known.
func (d *SSHDeployer) resolvePID(ctx context.Context) int {
	result, err := d.executor.Exec(ctx, fmt.Sprintf("cat %s 2>/dev/null", constants.AdapterPidPath))
	if err == nil && result.ExitCode == 0 {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(result.Stdout)); convErr == nil && pid > 0 {
			return pid
		}
	}
	if d.adapterPID != nil {
		return *d.adapterPID
	}
	return 0
}

// stopProcess signals the process and its direct children. Errors are
// ignored: the process may already be gone, which is the goal.
func (d *SSHDeployer) stopProcess(ctx context.Context, pid int, signal string) {
	command := fmt.Sprintf("pkill -%s -P %d 2>/dev/null; kill -%s %d 2>/dev/null; true",
		signal, pid, signal, pid)
	_, _ = d.executor.Exec(ctx, command)
}

func (d *SSHDeployer) processAlive(ctx context.Context, pid int) bool {
	result, err := d.executor.Exec(ctx, fmt.Sprintf("kill -0 %d 2>/dev/null", pid))
	return err == nil && result.ExitCode == 0
}

// survivingAdapters returns pid -> process state for every process still
// matching the adapter name.
func (d *SSHDeployer) survivingAdapters(ctx context.Context) (map[int]string, error) {
	result, err := d.executor.Exec(ctx, fmt.Sprintf("pgrep -f %s 2>/dev/null", constants.AdapterProcessName))
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		// pgrep exits 1 when nothing matches
		return nil, nil
	}

	survivors := map[int]string{}
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		pid, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil {
			continue
		}
		stateResult, stateErr := d.executor.Exec(ctx, fmt.Sprintf("ps -o state= -p %d 2>/dev/null", pid))
		if stateErr != nil {
			return nil, stateErr
		}
		if stateResult.ExitCode != 0 {
			// Gone between pgrep and ps; that is success.
			continue
		}
		survivors[pid] = strings.TrimSpace(stateResult.Stdout)
	}
	return survivors, nil
}

func isZombie(state string) bool {
	return strings.HasPrefix(strings.ToUpper(state), "Z")
}

func anyZombie(survivors map[int]string) bool {
	for _, state := range survivors {
		if isZombie(state) {
			return true
		}
	}
	return false
}

func sortedPIDs(survivors map[int]string) []int {
	pids := make([]int, 0, len(survivors))
	for pid := range survivors {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}
