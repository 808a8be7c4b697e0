package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/config"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/ssh"
)

// deviceSim scripts the remote side of a deployment for the MockExecutor.
// The zero value behaves like a healthy Linux device with a toolchain,
// python3, a working build, and an adapter that binds its port immediately.
type deviceSim struct {
	execErr           error
	toolchainMissing  bool
	pythonMissing     bool
	buildExit         int
	buildOutput       string
	validationExit    int
	validationOutput  string
	launchExit        int
	pidFileContent    string
	adapterLog        string
	adapterLogMissing bool
	logTail           string

	// boundAfter is the poll attempt from which the remote reports the port
	// bound; 0 means never.
	boundAfter int
	dialErr    error

	aliveAfterTerm bool
	pgrepResults   [][]int
	pgrepSticky    bool
	psStates       map[int]string
	rmFails        bool

	boundCalls int
	pgrepIdx   int
}

func healthySim() *deviceSim {
	return &deviceSim{
		pidFileContent: "4242",
		adapterLog:     "adapter listening\n",
		boundAfter:     1,
	}
}

func out(stdout string) *ssh.ExecResult {
	return &ssh.ExecResult{Stdout: stdout + "\n", ExitCode: 0}
}

func exitCode(code int) *ssh.ExecResult {
	return &ssh.ExecResult{ExitCode: code}
}

func (s *deviceSim) exec(_ context.Context, cmd string) (*ssh.ExecResult, error) {
	if s.execErr != nil {
		return nil, s.execErr
	}

	switch {
	case strings.Contains(cmd, "uname -s"):
		return out("Linux"), nil
	case strings.Contains(cmd, "uname -m"):
		return out("aarch64"), nil
	case strings.Contains(cmd, "uname -r"):
		return out("5.15.0-tegra"), nil
	case strings.Contains(cmd, "hostname"):
		return out("jetson-01"), nil
	case strings.Contains(cmd, "command -v python3"):
		if s.pythonMissing {
			return exitCode(1), nil
		}
		return out("/usr/bin/python3"), nil
	case strings.Contains(cmd, "command -v"):
		if s.toolchainMissing {
			return exitCode(1), nil
		}
		return out("/usr/bin/tool"), nil
	case strings.Contains(cmd, "nohup"):
		return exitCode(s.launchExit), nil
	case strings.Contains(cmd, "cat ~/cortex-adapter.pid"):
		if s.pidFileContent == "" {
			return exitCode(1), nil
		}
		return out(s.pidFileContent), nil
	case strings.Contains(cmd, "cat ~/cortex-adapter.log"):
		if s.adapterLogMissing {
			return exitCode(1), nil
		}
		return &ssh.ExecResult{Stdout: s.adapterLog}, nil
	case strings.Contains(cmd, "tail -n"):
		return &ssh.ExecResult{Stdout: s.logTail}, nil
	case strings.Contains(cmd, "ss -tln"):
		s.boundCalls++
		if s.boundAfter > 0 && s.boundCalls >= s.boundAfter {
			return exitCode(0), nil
		}
		return exitCode(1), nil
	case strings.Contains(cmd, "validate"):
		return &ssh.ExecResult{Stdout: s.validationOutput, ExitCode: s.validationExit}, nil
	case strings.Contains(cmd, "kill -0"):
		if s.aliveAfterTerm {
			return exitCode(0), nil
		}
		return exitCode(1), nil
	case strings.Contains(cmd, "pkill -KILL -f"):
		return exitCode(0), nil
	case strings.Contains(cmd, "pkill -"):
		return exitCode(0), nil
	case strings.Contains(cmd, "pgrep -f"):
		pids := s.nextPgrep()
		if len(pids) == 0 {
			return exitCode(1), nil
		}
		var lines []string
		for _, pid := range pids {
			lines = append(lines, fmt.Sprintf("%d", pid))
		}
		return &ssh.ExecResult{Stdout: strings.Join(lines, "\n") + "\n"}, nil
	case strings.Contains(cmd, "ps -o state="):
		for pid, state := range s.psStates {
			if strings.Contains(cmd, fmt.Sprintf("-p %d", pid)) {
				return out(state), nil
			}
		}
		return exitCode(1), nil
	case strings.Contains(cmd, "rm -rf"):
		if s.rmFails {
			return &ssh.ExecResult{Stderr: "rm: permission denied\n", ExitCode: 1}, nil
		}
		return exitCode(0), nil
	case strings.HasPrefix(cmd, "cd ~/cortex-deploy"):
		return &ssh.ExecResult{Stdout: s.buildOutput, ExitCode: s.buildExit}, nil
	default:
		return exitCode(0), nil
	}
}

func (s *deviceSim) nextPgrep() []int {
	if s.pgrepIdx >= len(s.pgrepResults) {
		if s.pgrepSticky && len(s.pgrepResults) > 0 {
			return s.pgrepResults[len(s.pgrepResults)-1]
		}
		return nil
	}
	pids := s.pgrepResults[s.pgrepIdx]
	s.pgrepIdx++
	return pids
}

// newTestDeployer wires a deployer to the simulator with instant polling.
func newTestDeployer(t *testing.T, sim *deviceSim) (*SSHDeployer, *ssh.MockExecutor) {
	t.Helper()

	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "Makefile"), []byte("all:\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultDeployConfig()
	cfg.SourceDir = srcDir

	target := DeviceTarget{User: "nvidia", Host: "192.168.1.50", SSHPort: 22, AdapterPort: 5555}
	d := NewSSHDeployer(target, cfg)

	mock := &ssh.MockExecutor{ExecFunc: sim.exec}
	d.SetExecutor(mock)
	d.sleep = func(time.Duration) {}
	d.readinessAttempts = 3
	d.readinessInterval = 0
	d.dial = func(host string, port int) error { return sim.dialErr }

	return d, mock
}

func commandsMatching(commands []string, substr string) []string {
	var matched []string
	for _, cmd := range commands {
		if strings.Contains(cmd, substr) {
			matched = append(matched, cmd)
		}
	}
	return matched
}
