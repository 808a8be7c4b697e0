package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose bool
	cfgFile string
	yesFlag bool // CI/CD: skip confirmations
)

var rootCmd = &cobra.Command{
	Use:   "cortexdeploy",
	Short: "Deploy the CORTEX benchmark adapter to remote devices",
	Long: `cortexdeploy delivers the CORTEX benchmark tree to a remote device over
SSH, builds it there, launches the benchmark adapter, and confirms it is
reachable before handing its transport URI back to the harness.

Quick start:
  cortexdeploy deploy nvidia@192.168.1.50    # deploy and print the transport URI
  cortexdeploy logs nvidia@192.168.1.50      # fetch adapter/build/validation logs
  cortexdeploy cleanup nvidia@192.168.1.50   # stop the adapter and remove artifacts

Device addresses:
  user@host[:port]        deploy over SSH (default port 22)
  user@[ipv6][:port]      deploy over SSH to an IPv6 address
  tcp://host:port         adapter already running, use as-is
  serial://, shm://       manual transports, used as-is
  (empty)                 local://, in-process adapter

Fetch logs before cleanup: cleanup deletes the remote log sources.

CI/CD Environment Variables:
  CORTEX_DEVICE               Default device address
  CORTEX_SSH_KEY              SSH private key content
  CORTEX_KNOWN_HOSTS          SSH known_hosts content
  CORTEX_SKIP_HOST_KEY_CHECK  Skip host key verification (true/false)`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: cortexdeploy.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Skip confirmations (CI/CD mode)")

	rootCmd.SetVersionTemplate(`cortexdeploy {{.Version}}
`)
}

// GetRootCmd returns the root command, for documentation generation
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// IsYesMode returns true if --yes flag is set (CI/CD mode)
func IsYesMode() bool {
	return yesFlag
}

// PrintError prints a formatted error message
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+msg+"\n", args...)
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	fmt.Printf("✅ "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	fmt.Printf("ℹ️  "+msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	fmt.Printf("⚠️  "+msg+"\n", args...)
}

// PrintVerbose prints a message only in verbose mode
func PrintVerbose(msg string, args ...interface{}) {
	if verbose {
		fmt.Printf("   "+msg+"\n", args...)
	}
}
