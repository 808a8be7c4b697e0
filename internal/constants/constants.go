package constants

import "time"

// Remote filesystem layout on the target device.
//
// The scratch path keeps a shell-expandable home reference on purpose: the
// deploying user's home directory is only known on the remote side, so every
// command must embed this path unquoted and let the remote shell expand it.
const (
	RemoteScratchDir = "~/cortex-deploy"
	AdapterLogPath   = "~/cortex-adapter.log"
	AdapterPidPath   = "~/cortex-adapter.pid"
)

// Adapter configuration
const (
	// AdapterBinary is the adapter executable path relative to the scratch
	// dir, produced by the remote build.
	AdapterBinary = "build/cortex_adapter"

	// AdapterProcessName is matched by the name-based kill fallback and the
	// post-kill process sweep.
	AdapterProcessName = "cortex_adapter"

	// DefaultAdapterPort is the port the adapter listens on. Two concurrent
	// deployments to the same host collide on it; callers that need
	// parallelism against one host must supply distinct ports.
	DefaultAdapterPort = 5555

	DefaultSSHPort = 22
)

// Build and validation defaults
const (
	DefaultBuildCommand      = "make"
	DefaultValidationCommand = "python3 scripts/validate_kernels.py"

	// ValidationRuntime is probed before validation runs; when absent,
	// validation downgrades to a warning instead of failing the deployment.
	ValidationRuntime = "python3"
)

// Readiness wait
const (
	ReadinessAttempts = 30
	ReadinessInterval = 1 * time.Second
	LocalDialTimeout  = 2 * time.Second
)

// Cleanup timing
const (
	GracefulStopWait = 2 * time.Second
	ReapPause        = 1 * time.Second
	ZombieWait       = 5 * time.Second
	ZombieInterval   = 1 * time.Second
)

// Log retrieval
const (
	// MaxArtifactBytes caps each artifact written by log retrieval. Oversized
	// content keeps its trailing MaxArtifactBytes behind an explicit marker
	// line, never silently dropped.
	MaxArtifactBytes = 10 * 1024 * 1024

	// LogTailLines is how much of the adapter log is pulled into a readiness
	// timeout error.
	LogTailLines = 50
)

// SSH defaults
const (
	ConnectTimeout = 10 * time.Second
)

// DefaultSyncExcludes lists patterns never mirrored to the device: version
// control metadata, prior results, and compiled artifacts.
var DefaultSyncExcludes = []string{
	".git",
	"results",
	"__pycache__",
	"*.pyc",
	"*.o",
	"*.so",
	"build",
	"*.log",
	".DS_Store",
}
