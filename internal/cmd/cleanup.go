package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/deploy"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [device]",
	Short: "Stop the adapter and remove deployment artifacts",
	Long: `Tears down a deployment: stops the adapter process (gracefully, then
forcefully), verifies nothing survived, and removes the remote scratch
directory and marker files.

Cleanup is best effort: partial failures are reported as warnings and the
command still exits successfully unless --strict is set. Safe to run even if
no deployment exists on the device.

Fetch logs first: cleanup deletes the remote log sources.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanup,
}

var cleanupStrict bool

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupStrict, "strict", false, "Exit non-zero if any teardown step failed")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	res, _, err := resolveDevice(args, nil)
	if err != nil {
		PrintError("%v", err)
		return err
	}

	if res.TransportURI != "" {
		PrintInfo("Manual transport %s: nothing to clean up", res.TransportURI)
		return nil
	}

	sshDep := res.Deployer.(*deploy.SSHDeployer)
	defer sshDep.Close()

	target := sshDep.Target()
	if IsInteractive() {
		ok := PromptConfirm(fmt.Sprintf("Stop the adapter and delete deployment files on %s@%s?", target.User, target.Host))
		if !ok {
			PrintInfo("Cleanup cancelled")
			return nil
		}
	}

	result := sshDep.Cleanup(ctx)
	for _, msg := range result.Errors {
		PrintWarning("%s", msg)
	}

	if result.Success {
		PrintSuccess("Device cleaned up")
		return nil
	}

	PrintWarning("Cleanup finished with %d issue(s)", len(result.Errors))
	if cleanupStrict {
		return fmt.Errorf("cleanup incomplete: %d error(s)", len(result.Errors))
	}
	return nil
}
