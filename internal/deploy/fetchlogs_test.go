package deploy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

func TestFetchLogs_AfterDeploy(t *testing.T) {
	sim := healthySim()
	sim.adapterLog = "adapter listening on tcp://0.0.0.0:5555\n"
	sim.buildOutput = "cc -O2 -o build/cortex_adapter src/main.c\n"
	sim.validationOutput = "12/12 kernels match oracle\n"
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.NoError(t, err)

	outDir := t.TempDir()
	result := d.FetchLogs(context.Background(), outDir)

	assert.True(t, result.Success, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t,
		[]string{AdapterLogFile, BuildLogFile, ValidationFile, MetadataFile, ReadmeFile},
		result.FilesFetched)

	for _, name := range result.FilesFetched {
		info, statErr := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, statErr, "expected %s on disk", name)
		assert.Equal(t, result.Sizes[name], info.Size())
	}

	adapterLog, _ := os.ReadFile(filepath.Join(outDir, AdapterLogFile))
	assert.Contains(t, string(adapterLog), "adapter listening")
	buildLog, _ := os.ReadFile(filepath.Join(outDir, BuildLogFile))
	assert.Contains(t, string(buildLog), "cc -O2")

	var manifest map[string]any
	data, _ := os.ReadFile(filepath.Join(outDir, MetadataFile))
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "nvidia@192.168.1.50:22", manifest["device"])
	assert.Equal(t, "tcp://192.168.1.50:5555", manifest["transport_uri"])
	assert.NotEmpty(t, manifest["fetched_at"])
}

func TestFetchLogs_SkippedValidationStillWritesFile(t *testing.T) {
	sim := healthySim()
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{SkipValidation: true})
	require.NoError(t, err)

	outDir := t.TempDir()
	result := d.FetchLogs(context.Background(), outDir)
	require.True(t, result.Success, "errors: %v", result.Errors)

	content, readErr := os.ReadFile(filepath.Join(outDir, ValidationFile))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "did not run")
}

func TestFetchLogs_AfterCleanupDegradesGracefully(t *testing.T) {
	sim := healthySim()
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.NoError(t, err)
	require.True(t, d.Cleanup(context.Background()).Success)

	// Cleanup removed the remote adapter log.
	sim.adapterLogMissing = true

	outDir := t.TempDir()
	result := d.FetchLogs(context.Background(), outDir)

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "adapter log")

	// In-memory captures are still written.
	assert.Contains(t, result.FilesFetched, BuildLogFile)
	assert.Contains(t, result.FilesFetched, MetadataFile)
	assert.NotContains(t, result.FilesFetched, AdapterLogFile)
}

func TestFetchLogs_WithoutDeployRecordsErrors(t *testing.T) {
	sim := healthySim()
	d, _ := newTestDeployer(t, sim)

	outDir := t.TempDir()
	result := d.FetchLogs(context.Background(), outDir)

	assert.False(t, result.Success)
	assert.Contains(t, strings.Join(result.Errors, "\n"), "deploy did not run")
	// The remote adapter log is still retrievable on its own.
	assert.Contains(t, result.FilesFetched, AdapterLogFile)
}

func TestFetchLogs_TruncatesOversizedArtifact(t *testing.T) {
	sim := healthySim()
	d, _ := newTestDeployer(t, sim)
	d.buildRan = true
	d.logs.BuildOutput = strings.Repeat("x", constants.MaxArtifactBytes+4096)

	outDir := t.TempDir()
	result := d.FetchLogs(context.Background(), outDir)
	require.Contains(t, result.FilesFetched, BuildLogFile)

	data, err := os.ReadFile(filepath.Join(outDir, BuildLogFile))
	require.NoError(t, err)

	firstLine, _, _ := strings.Cut(string(data[:256]), "\n")
	assert.Contains(t, firstLine, "[truncated:")

	// Exactly the cap plus the marker line, never more.
	markerLen := len(firstLine) + 1
	assert.Equal(t, constants.MaxArtifactBytes+markerLen, len(data))
}

func TestFetchLogs_UnwritableOutputDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	sim := healthySim()
	d, _ := newTestDeployer(t, sim)

	result := d.FetchLogs(context.Background(), filepath.Join(blocker, "logs"))

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "output directory")
}
