package deploy

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/config"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/ssh"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/workspace"
)

// SSHDeployer realizes the Deployer capability over SSH: it mirrors the local
// tree to the device, builds it there, launches the adapter as a detached
// process, and confirms readiness from both sides before reporting success.
//
// One instance owns exactly one DeviceTarget for its lifetime. Instances for
// different devices are independent; two deployments to the same host and
// port will conflict on the shared scratch directory and adapter port.
type SSHDeployer struct {
	target DeviceTarget
	cfg    *config.DeployConfig
	log    zerolog.Logger

	executor    ssh.Executor
	newExecutor func(ctx context.Context) (ssh.Executor, error)
	dial        func(host string, port int) error
	sleep       func(time.Duration)
	onMessage   func(string)

	readinessAttempts int
	readinessInterval time.Duration
	gracefulStopWait  time.Duration
	reapPause         time.Duration
	zombieWait        time.Duration
	zombieInterval    time.Duration

	adapterPID    *int
	syncInfo      *workspace.Info
	logs          CapturedLogs
	buildRan      bool
	validationRan bool
}

// NewSSHDeployer creates a deployer for one device. No I/O happens until
// Deploy, Cleanup, or FetchLogs is called.
func NewSSHDeployer(target DeviceTarget, cfg *config.DeployConfig) *SSHDeployer {
	if cfg == nil {
		cfg = config.DefaultDeployConfig()
	}
	if target.SSHPort == 0 {
		target.SSHPort = constants.DefaultSSHPort
	}
	if target.AdapterPort == 0 {
		target.AdapterPort = cfg.AdapterPort
	}

	d := &SSHDeployer{
		target:            target,
		cfg:               cfg,
		log:               zerolog.Nop(),
		sleep:             time.Sleep,
		readinessAttempts: constants.ReadinessAttempts,
		readinessInterval: constants.ReadinessInterval,
		gracefulStopWait:  constants.GracefulStopWait,
		reapPause:         constants.ReapPause,
		zombieWait:        constants.ZombieWait,
		zombieInterval:    constants.ZombieInterval,
	}
	d.newExecutor = d.connectClient
	d.dial = func(host string, port int) error {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), constants.LocalDialTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	}
	return d
}

// Target returns the device this deployer manages.
func (d *SSHDeployer) Target() DeviceTarget {
	return d.target
}

// SetLogger sets the structured logger.
func (d *SSHDeployer) SetLogger(log zerolog.Logger) {
	d.log = log
}

// SetExecutor replaces the SSH transport. Used by tests and by callers that
// manage their own connection.
func (d *SSHDeployer) SetExecutor(exec ssh.Executor) {
	d.executor = exec
}

// OnMessage sets a callback for human-readable progress messages.
func (d *SSHDeployer) OnMessage(fn func(string)) {
	d.onMessage = fn
}

// Close releases the SSH connection, if any.
func (d *SSHDeployer) Close() error {
	if d.executor != nil {
		return d.executor.Close()
	}
	return nil
}

func (d *SSHDeployer) message(msg string) {
	if d.onMessage != nil {
		d.onMessage(msg)
	}
}

func (d *SSHDeployer) connectClient(ctx context.Context) (ssh.Executor, error) {
	var opts []ssh.ClientOption
	if d.cfg.SSHKeyData != "" {
		opts = append(opts, ssh.WithKeyData(d.cfg.SSHKeyData))
	}
	if d.cfg.KnownHostsData != "" {
		opts = append(opts, ssh.WithKnownHostsData(d.cfg.KnownHostsData))
	}
	if d.cfg.SkipHostKeyCheck {
		opts = append(opts, ssh.WithInsecureHostKey())
	}

	client := ssh.NewClient(d.target.Host, d.target.User, d.target.SSHPort, d.cfg.SSHKeyPath, opts...)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// connect establishes the SSH connection if one does not exist yet.
func (d *SSHDeployer) connect(ctx context.Context) error {
	if d.executor != nil {
		return nil
	}
	exec, err := d.newExecutor(ctx)
	if err != nil {
		return err
	}
	d.executor = exec
	return nil
}

// Deploy runs the six-phase deployment state machine. Failure at any phase
// aborts the rest and returns a *PhaseError naming the phase, the command
// attempted, and how to fix it.
func (d *SSHDeployer) Deploy(ctx context.Context, opts DeployOptions) (*DeploymentResult, error) {
	// Phase 1: authentication preflight. Key-based auth is the only method
	// the client offers, so connecting proves it works.
	d.message("Checking SSH access...")
	if err := d.connect(ctx); err != nil {
		return nil, &PhaseError{
			Phase:   PhaseAuthPreflight,
			Command: fmt.Sprintf("ssh -o BatchMode=yes -p %d %s@%s true", d.target.SSHPort, d.target.User, d.target.Host),
			Remediation: fmt.Sprintf(
				"    ssh-keygen -t ed25519                        # generate a key if you have none\n"+
					"    ssh-copy-id -p %d %s@%s    # install it on the device\n"+
					"    ssh -o PasswordAuthentication=no -p %d %s@%s true   # verify key-based login",
				d.target.SSHPort, d.target.User, d.target.Host,
				d.target.SSHPort, d.target.User, d.target.Host),
			Err: fmt.Errorf("key-based SSH authentication failed: %w", err),
		}
	}
	d.log.Debug().Str("phase", PhaseAuthPreflight.String()).Str("host", d.target.Host).Msg("phase complete")

	// Phase 2: capability detection
	d.message("Detecting device capabilities...")
	caps, err := d.detectCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Str("phase", PhaseCapabilities.String()).
		Str("platform", caps["platform"]).Str("arch", caps["arch"]).Msg("phase complete")

	// Phase 3: code synchronization
	d.message("Syncing code to device...")
	if err := d.syncCode(ctx); err != nil {
		return nil, err
	}
	d.log.Debug().Str("phase", PhaseCodeSync.String()).Msg("phase complete")

	// Phase 4: remote build
	d.message("Building on device...")
	if err := d.build(ctx); err != nil {
		return nil, err
	}
	d.log.Debug().Str("phase", PhaseBuild.String()).Msg("phase complete")

	// Phase 5: optional validation
	validation, err := d.validate(ctx, opts.SkipValidation)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Str("phase", PhaseValidation.String()).Str("outcome", validation).Msg("phase complete")

	// Phase 6: adapter launch and dual-sided readiness wait
	d.message("Launching adapter...")
	if err := d.launch(ctx); err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx); err != nil {
		return nil, err
	}
	d.log.Debug().Str("phase", PhaseLaunch.String()).Msg("phase complete")

	metadata := map[string]string{
		"deployment_id": uuid.NewString(),
		"deployed_at":   time.Now().UTC().Format(time.RFC3339),
		"validation":    validation,
	}
	for k, v := range caps {
		metadata[k] = v
	}
	if d.syncInfo != nil {
		metadata["source_files"] = strconv.Itoa(d.syncInfo.Files)
		metadata["source_bytes"] = strconv.FormatInt(d.syncInfo.TotalBytes, 10)
	}

	return &DeploymentResult{
		Success:      true,
		TransportURI: d.target.TransportURI(),
		AdapterPID:   d.adapterPID,
		Metadata:     metadata,
	}, nil
}

// run executes a command and folds transport errors into a PhaseError.
func (d *SSHDeployer) run(ctx context.Context, phase Phase, command string) (*ssh.ExecResult, error) {
	result, err := d.executor.Exec(ctx, command)
	if err != nil {
		return nil, &PhaseError{
			Phase:   phase,
			Command: command,
			Err:     err,
		}
	}
	return result, nil
}

func (d *SSHDeployer) detectCapabilities(ctx context.Context) (map[string]string, error) {
	caps := map[string]string{}

	facts := []struct {
		key     string
		command string
	}{
		{"platform", "uname -s"},
		{"arch", "uname -m"},
		{"kernel", "uname -r"},
		{"hostname", "hostname"},
	}
	for _, f := range facts {
		result, err := d.run(ctx, PhaseCapabilities, f.command)
		if err != nil {
			return nil, err
		}
		if result.ExitCode != 0 {
			return nil, &PhaseError{
				Phase:   PhaseCapabilities,
				Command: f.command,
				Err:     fmt.Errorf("exit %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)),
			}
		}
		caps[f.key] = strings.TrimSpace(result.Stdout)
	}

	// Build toolchain is a hard requirement; never proceed without it.
	for _, tool := range []string{"make", "cc"} {
		command := "command -v " + tool
		result, err := d.run(ctx, PhaseCapabilities, command)
		if err != nil {
			return nil, err
		}
		if result.ExitCode != 0 {
			return nil, &PhaseError{
				Phase:   PhaseCapabilities,
				Command: command,
				Remediation: fmt.Sprintf("    ssh %s@%s 'sudo apt-get update && sudo apt-get install -y build-essential'",
					d.target.User, d.target.Host),
				Err: fmt.Errorf("build toolchain missing on device: %q not found", tool),
			}
		}
	}

	return caps, nil
}

func (d *SSHDeployer) syncCode(ctx context.Context) error {
	// Inspect the local tree first: a missing Makefile or an empty directory
	// fails here instead of as a confusing remote build error.
	info, err := workspace.New(d.cfg.SourceDir, d.cfg.SyncExcludes).Inspect()
	if err != nil {
		return &PhaseError{
			Phase:       PhaseCodeSync,
			Remediation: fmt.Sprintf("    check that %q contains the adapter sources and its Makefile", d.cfg.SourceDir),
			Err:         err,
		}
	}
	d.syncInfo = info
	d.log.Debug().Int("files", info.Files).Int64("bytes", info.TotalBytes).Msg("source tree inspected")

	// The scratch path must stay unquoted: its home reference is expanded by
	// the remote shell, and the deploying user's home is only known there.
	command := fmt.Sprintf("rm -rf %s && mkdir -p %s && tar -xzf - -C %s",
		constants.RemoteScratchDir, constants.RemoteScratchDir, constants.RemoteScratchDir)

	pr, pw := io.Pipe()
	archiveDone := make(chan error, 1)
	go func() {
		archiveErr := ssh.WriteTree(pw, d.cfg.SourceDir, d.cfg.SyncExcludes)
		pw.CloseWithError(archiveErr)
		archiveDone <- archiveErr
	}()

	err = d.executor.Push(ctx, pr, command)
	// The remote side may stop consuming stdin before the archive is fully
	// written. Closing the read side fails any pending write, so the archive
	// goroutine always terminates before we wait on it.
	pr.CloseWithError(err)
	archiveErr := <-archiveDone

	if err == nil {
		err = archiveErr
	}
	if err != nil {
		return &PhaseError{
			Phase:       PhaseCodeSync,
			Command:     command,
			Remediation: "    check that the device has free disk space and tar installed",
			Err:         fmt.Errorf("failed to mirror source tree: %w", err),
		}
	}
	return nil
}

func (d *SSHDeployer) build(ctx context.Context) error {
	d.buildRan = true
	command := fmt.Sprintf("cd %s && %s 2>&1", constants.RemoteScratchDir, d.cfg.BuildCommand)

	result, err := d.run(ctx, PhaseBuild, command)
	if err != nil {
		return err
	}

	// Output is kept on success and failure so it survives into FetchLogs.
	d.logs.BuildOutput = result.CombinedOutput()

	if result.ExitCode != 0 {
		return &PhaseError{
			Phase:       PhaseBuild,
			Command:     command,
			Remediation: fmt.Sprintf("    ssh %s@%s 'cd %s && %s'   # rerun to see the full build log", d.target.User, d.target.Host, constants.RemoteScratchDir, d.cfg.BuildCommand),
			Err:         fmt.Errorf("remote build failed (exit %d): %s", result.ExitCode, tailOf(d.logs.BuildOutput, 800)),
		}
	}
	return nil
}

func (d *SSHDeployer) validate(ctx context.Context, skip bool) (string, error) {
	if skip {
		d.message("Skipping validation")
		return "skipped", nil
	}

	// Validation is a quality gate, not a hard blocker: a missing runtime
	// downgrades to a warning.
	probe := "command -v " + constants.ValidationRuntime
	result, err := d.run(ctx, PhaseValidation, probe)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		d.message(fmt.Sprintf("Warning: %s not found on device, skipping validation", constants.ValidationRuntime))
		d.log.Warn().Str("host", d.target.Host).Msg("validation runtime unavailable, continuing without validation")
		return "unavailable", nil
	}

	d.message("Validating kernels against oracle...")
	d.validationRan = true
	command := fmt.Sprintf("cd %s && %s 2>&1", constants.RemoteScratchDir, d.cfg.ValidationCommand)
	result, err = d.run(ctx, PhaseValidation, command)
	if err != nil {
		return "", err
	}

	d.logs.ValidationOutput = result.CombinedOutput()

	if result.ExitCode != 0 {
		return "", &PhaseError{
			Phase:       PhaseValidation,
			Command:     command,
			Remediation: "    fix the failing kernels, or pass --skip-validation to deploy anyway",
			Err:         fmt.Errorf("validation failed (exit %d): %s", result.ExitCode, tailOf(d.logs.ValidationOutput, 800)),
		}
	}
	return "passed", nil
}

func (d *SSHDeployer) launch(ctx context.Context) error {
	// The adapter must be fully detached with all stdio redirected away from
	// the session; a foreground-attached process would hang the connection.
	// The brace group keeps the background operator scoped to nohup alone:
	// without it the whole rm-and-cd list is backgrounded and the rm races
	// the pid marker write.
	command := fmt.Sprintf(
		"rm -f %s && cd %s && { nohup ./%s --listen tcp://0.0.0.0:%d > %s 2>&1 < /dev/null & echo $! > %s; }",
		constants.AdapterPidPath, constants.RemoteScratchDir, d.cfg.AdapterBinary,
		d.target.AdapterPort, constants.AdapterLogPath, constants.AdapterPidPath)

	result, err := d.run(ctx, PhaseLaunch, command)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &PhaseError{
			Phase:   PhaseLaunch,
			Command: command,
			Err:     fmt.Errorf("failed to launch adapter (exit %d): %s", result.ExitCode, strings.TrimSpace(result.Stderr)),
		}
	}

	// The marker file is written by the launch command itself, so the pid is
	// readable immediately. A failed read is tolerated: cleanup falls back to
	// name-based targeting.
	pidResult, err := d.executor.Exec(ctx, "cat "+constants.AdapterPidPath)
	if err == nil && pidResult.ExitCode == 0 {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(pidResult.Stdout)); convErr == nil {
			d.adapterPID = &pid
		}
	}
	return nil
}

func tailOf(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
