package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/config"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/deploy"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/logging"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [device]",
	Short: "Deploy the benchmark adapter to a device",
	Long: `Deploys the benchmark adapter to the specified device.

The deployment process:
1. Verifies key-based SSH access
2. Detects device capabilities (OS, architecture, toolchain)
3. Mirrors the benchmark tree to the device
4. Builds it remotely
5. Validates kernels against the oracle (unless skipped)
6. Launches the adapter and waits until it is reachable

On success the adapter's transport URI is printed; pass it to the benchmark
harness. Manual addresses (tcp://, serial://, shm://, local://) skip
deployment entirely and are printed as-is.

CI/CD: If no device is specified, the CORTEX_DEVICE environment variable is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

var (
	deploySkipValidation bool
	deployPort           int
	deployKey            string
)

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().BoolVar(&deploySkipValidation, "skip-validation", false, "Skip oracle kernel validation")
	deployCmd.Flags().IntVar(&deployPort, "port", 0, "Adapter port (default 5555; distinct ports allow parallel deployments to one host)")
	deployCmd.Flags().StringVar(&deployKey, "key", "", "SSH private key path")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Setup(IsVerbose())

	res, _, err := resolveDevice(args, func(cfg *config.DeployConfig) {
		if deployPort != 0 {
			cfg.AdapterPort = deployPort
		}
		if deployKey != "" {
			cfg.SSHKeyPath = deployKey
		}
	})
	if err != nil {
		PrintError("%v", err)
		return err
	}

	// Manual path: the agent is assumed to be already running.
	if res.TransportURI != "" {
		PrintInfo("Manual transport, no deployment needed")
		fmt.Println(res.TransportURI)
		return nil
	}

	sshDep, ok := res.Deployer.(*deploy.SSHDeployer)
	if !ok {
		return fmt.Errorf("unsupported deployer type %T", res.Deployer)
	}
	defer sshDep.Close()

	sshDep.SetLogger(log)
	sshDep.OnMessage(func(msg string) { PrintInfo("%s", msg) })

	result, err := sshDep.Deploy(ctx, deploy.DeployOptions{
		Verbose:        IsVerbose(),
		SkipValidation: deploySkipValidation,
	})
	if err != nil {
		PrintError("%v", err)
		return err
	}

	PrintSuccess("Adapter ready at %s", result.TransportURI)
	if result.AdapterPID != nil {
		PrintVerbose("Adapter pid: %d", *result.AdapterPID)
	}

	keys := make([]string, 0, len(result.Metadata))
	for k := range result.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		PrintVerbose("%s: %s", k, result.Metadata[k])
	}

	fmt.Println(result.TransportURI)
	return nil
}
