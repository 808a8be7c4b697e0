package deploy

import (
	"context"
	"net"
	"strconv"
)

// DeviceTarget is the immutable identity of a remote endpoint. It is built
// once by the address parser and owned by exactly one Deployer for that
// deployer's whole lifetime.
type DeviceTarget struct {
	User        string
	Host        string
	SSHPort     int
	AdapterPort int
}

// SSHAddr returns the host:port address of the device's SSH server.
// IPv6 literals come back bracketed.
func (t DeviceTarget) SSHAddr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.SSHPort))
}

// TransportURI returns the address the adapter listens on once deployed.
func (t DeviceTarget) TransportURI() string {
	return "tcp://" + net.JoinHostPort(t.Host, strconv.Itoa(t.AdapterPort))
}

// DeployOptions controls a single Deploy call.
type DeployOptions struct {
	Verbose        bool
	SkipValidation bool
}

// DeploymentResult is the immutable outcome of a successful deployment.
// Deploy either returns a fully successful result or an error; no partial
// result exists.
type DeploymentResult struct {
	Success      bool
	TransportURI string

	// AdapterPID is the remote adapter's process id. Nil for embedded or
	// always-on agents that have no process concept.
	AdapterPID *int

	// Metadata carries capability facts (platform, arch, hostname, kernel)
	// merged with the validation outcome and deployment identity.
	Metadata map[string]string
}

// CleanupResult is the authoritative record of a teardown attempt. The
// operation producing it never returns an error; every failure is an entry in
// Errors.
type CleanupResult struct {
	Success bool
	Errors  []string
}

// FetchResult records a best-effort log retrieval. Overall success is the
// conjunction of per-artifact success.
type FetchResult struct {
	Success      bool
	FilesFetched []string
	Errors       []string
	Sizes        map[string]int64
}

// CapturedLogs holds build and validation output captured during Deploy, on
// both success and failure, for later retrieval.
type CapturedLogs struct {
	BuildOutput      string
	ValidationOutput string
}

// Deployer is the contract every deployment strategy satisfies. New
// strategies (JTAG, serial) implement this and register an address form with
// the device parser; nothing else changes.
type Deployer interface {
	// Deploy makes the adapter reachable on the device and returns where.
	// It leaves the target fully ready or fails with an actionable cause.
	// Not guaranteed idempotent: a second call redeploys over the first.
	Deploy(ctx context.Context, opts DeployOptions) (*DeploymentResult, error)

	// Cleanup tears down everything the deployment created, best effort.
	// Safe to call after a failed or never-started Deploy; never errors.
	Cleanup(ctx context.Context) *CleanupResult

	// FetchLogs writes deployment artifacts into outputDir, best effort.
	// Must run before Cleanup or the remote sources may be gone.
	FetchLogs(ctx context.Context, outputDir string) *FetchResult
}
