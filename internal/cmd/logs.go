package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/deploy"
)

var logsCmd = &cobra.Command{
	Use:   "logs [device]",
	Short: "Fetch deployment logs from a device",
	Long: `Retrieves deployment artifacts into a local directory:

  adapter.log     adapter stdout/stderr from the device
  build.log       remote build output (captured during deploy)
  validation.log  oracle validation output (captured during deploy)
  metadata.json   device identity, transport URI, timestamps, sizes
  README.txt      description of the artifacts

Build and validation output only exist in the process that ran deploy; from a
separate invocation only the adapter log can be recovered. Run this before
cleanup, which deletes the remote sources.

Example:
  cortexdeploy logs nvidia@192.168.1.50 --output ./run42-logs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

var logsOutputDir string

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVarP(&logsOutputDir, "output", "o", "cortex-logs", "Directory to write log artifacts into")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	res, _, err := resolveDevice(args, nil)
	if err != nil {
		PrintError("%v", err)
		return err
	}

	if res.TransportURI != "" {
		err := fmt.Errorf("log retrieval needs an SSH device address, got manual transport %s", res.TransportURI)
		PrintError("%v", err)
		return err
	}

	sshDep := res.Deployer.(*deploy.SSHDeployer)
	defer sshDep.Close()

	result := sshDep.FetchLogs(ctx, logsOutputDir)
	for _, msg := range result.Errors {
		PrintWarning("%s", msg)
	}

	for _, name := range result.FilesFetched {
		PrintInfo("%-16s %d bytes", name, result.Sizes[name])
	}

	if result.Success {
		PrintSuccess("Logs written to %s", logsOutputDir)
	} else {
		PrintWarning("Partial log retrieval: %d file(s), %d issue(s)", len(result.FilesFetched), len(result.Errors))
	}
	return nil
}
