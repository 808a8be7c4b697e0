package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

// Artifact filenames written by FetchLogs.
const (
	AdapterLogFile = "adapter.log"
	BuildLogFile   = "build.log"
	ValidationFile = "validation.log"
	MetadataFile   = "metadata.json"
	ReadmeFile     = "README.txt"
)

// logManifest is the metadata.json document describing a log retrieval.
type logManifest struct {
	Device       string           `json:"device"`
	TransportURI string           `json:"transport_uri"`
	FetchedAt    string           `json:"fetched_at"`
	Files        map[string]int64 `json:"files"`
	Errors       []string         `json:"errors,omitempty"`
}

// FetchLogs writes the adapter's remote log and the build/validation output
// captured during Deploy into outputDir, alongside a metadata manifest and a
// short artifact description. Best effort: it writes whatever exists, records
// every failure, and never returns an error. Run it before Cleanup, which
// deletes the remote sources.
//
// Any artifact over the size cap is truncated to its trailing portion behind
// an explicit marker.
func (d *SSHDeployer) FetchLogs(ctx context.Context, outputDir string) *FetchResult {
	result := &FetchResult{Success: true, Sizes: map[string]int64{}}
	fail := func(format string, args ...any) {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fail("cannot create output directory %s: %v", outputDir, err)
		return result
	}

	// Adapter log lives on the device and is re-fetched.
	if err := d.connect(ctx); err != nil {
		fail("cannot reach device to fetch adapter log: %v", err)
	} else {
		command := fmt.Sprintf("cat %s", constants.AdapterLogPath)
		remote, err := d.executor.Exec(ctx, command)
		switch {
		case err != nil:
			fail("failed to read adapter log: %v", err)
		case remote.ExitCode != 0:
			fail("adapter log missing on device (already cleaned up?): exit %d", remote.ExitCode)
		default:
			writeArtifact(result, outputDir, AdapterLogFile, []byte(remote.Stdout))
		}
	}

	// Build and validation output were captured in memory during Deploy and
	// are not re-fetched.
	if d.buildRan {
		writeArtifact(result, outputDir, BuildLogFile, []byte(d.logs.BuildOutput))
	} else {
		fail("build output not captured: deploy did not run in this session")
	}
	if d.validationRan {
		writeArtifact(result, outputDir, ValidationFile, []byte(d.logs.ValidationOutput))
	} else if d.buildRan {
		// Deploy ran but validation was skipped or unavailable; record that
		// instead of omitting the file silently.
		writeArtifact(result, outputDir, ValidationFile, []byte("validation did not run for this deployment\n"))
	}

	manifest := logManifest{
		Device:       fmt.Sprintf("%s@%s", d.target.User, d.target.SSHAddr()),
		TransportURI: d.target.TransportURI(),
		FetchedAt:    time.Now().UTC().Format(time.RFC3339),
		Files:        result.Sizes,
		Errors:       result.Errors,
	}
	if data, err := json.MarshalIndent(manifest, "", "  "); err != nil {
		fail("failed to encode metadata manifest: %v", err)
	} else {
		writeArtifact(result, outputDir, MetadataFile, append(data, '\n'))
	}

	writeArtifact(result, outputDir, ReadmeFile, []byte(artifactReadme))

	return result
}

// writeArtifact writes one artifact, enforcing the size cap with a trailing
// truncation, and records the outcome in the result.
func writeArtifact(result *FetchResult, outputDir, name string, content []byte) {
	if len(content) > constants.MaxArtifactBytes {
		marker := fmt.Sprintf("[truncated: showing last %d of %d bytes]\n",
			constants.MaxArtifactBytes, len(content))
		tail := content[len(content)-constants.MaxArtifactBytes:]
		content = append([]byte(marker), tail...)
	}

	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to write %s: %v", name, err))
		return
	}
	result.FilesFetched = append(result.FilesFetched, name)
	result.Sizes[name] = int64(len(content))
}

const artifactReadme = `CORTEX deployment logs
======================

adapter.log     stdout/stderr of the benchmark adapter on the device
build.log       output of the remote build, captured during deployment
validation.log  output of the oracle kernel validation (if it ran)
metadata.json   device identity, transport URI, timestamps, file sizes

Files larger than the retrieval cap are truncated to their trailing portion;
a marker on the first line records the original size.
`
