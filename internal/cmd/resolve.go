package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/deploy"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [device]",
	Short: "Show how a device address would be interpreted",
	Long: `Classifies a device address without touching the network: prints either
the SSH deployment target it would construct, or the manual transport URI that
would be passed through unchanged.

Example:
  cortexdeploy resolve nvidia@192.168.1.50:2222
  cortexdeploy resolve tcp://10.0.0.5:9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	res, _, err := resolveDevice(args, nil)
	if err != nil {
		PrintError("%v", err)
		return err
	}

	if res.TransportURI != "" {
		PrintInfo("Manual transport URI (agent assumed already running)")
		fmt.Println(res.TransportURI)
		return nil
	}

	target := res.Deployer.(*deploy.SSHDeployer).Target()
	PrintInfo("SSH deployment")
	fmt.Printf("  user:         %s\n", target.User)
	fmt.Printf("  host:         %s\n", target.Host)
	fmt.Printf("  ssh port:     %d\n", target.SSHPort)
	fmt.Printf("  adapter port: %d\n", target.AdapterPort)
	fmt.Printf("  transport:    %s\n", target.TransportURI())
	return nil
}
