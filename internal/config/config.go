package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

// DefaultConfigFile is the per-project config filename
const DefaultConfigFile = "cortexdeploy.yaml"

// DeployConfig represents the cortexdeploy.yaml configuration. All fields are
// optional; the zero config deploys the current directory with defaults.
type DeployConfig struct {
	// BuildCommand is the remote build entry point, run in the scratch dir.
	// Its exit code is the sole success signal.
	BuildCommand string `yaml:"build_command,omitempty"`

	// ValidationCommand runs the oracle kernel validation after the build.
	ValidationCommand string `yaml:"validation_command,omitempty"`

	// AdapterBinary is the adapter executable path relative to the scratch
	// dir, as produced by the build.
	AdapterBinary string `yaml:"adapter_binary,omitempty"`

	// AdapterPort is the port the adapter listens on.
	AdapterPort int `yaml:"adapter_port,omitempty"`

	// SSHKeyPath overrides SSH key auto-discovery.
	SSHKeyPath string `yaml:"ssh_key,omitempty"`

	// SourceDir is the local tree mirrored to the device (default ".").
	SourceDir string `yaml:"source_dir,omitempty"`

	// SyncExcludes replaces the default exclusion patterns.
	SyncExcludes []string `yaml:"sync_excludes,omitempty"`

	// Populated from the environment, never from YAML.
	SSHKeyData       string `yaml:"-"`
	KnownHostsData   string `yaml:"-"`
	SkipHostKeyCheck bool   `yaml:"-"`
}

// DefaultDeployConfig returns the configuration used when no config file
// exists.
func DefaultDeployConfig() *DeployConfig {
	return &DeployConfig{
		BuildCommand:      constants.DefaultBuildCommand,
		ValidationCommand: constants.DefaultValidationCommand,
		AdapterBinary:     constants.AdapterBinary,
		AdapterPort:       constants.DefaultAdapterPort,
		SourceDir:         ".",
		SyncExcludes:      constants.DefaultSyncExcludes,
	}
}

// LoadDeployConfig loads the deployment configuration from path. A missing
// file is not an error: defaults apply. Fields left empty in the file also
// fall back to defaults.
func LoadDeployConfig(path string) (*DeployConfig, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDeployConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultDeployConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks configuration consistency.
func (c *DeployConfig) Validate() error {
	if c.BuildCommand == "" {
		return fmt.Errorf("build_command cannot be empty")
	}
	if c.AdapterBinary == "" {
		return fmt.Errorf("adapter_binary cannot be empty")
	}
	if c.AdapterPort < 1 || c.AdapterPort > 65535 {
		return fmt.Errorf("adapter_port must be between 1 and 65535, got %d", c.AdapterPort)
	}
	return nil
}

// Env holds CORTEX_* environment overrides, mostly for CI/CD where no
// interactive SSH setup exists.
type Env struct {
	// Device is the default device address when none is given on the
	// command line.
	Device string `envconfig:"DEVICE"`

	// SSHKey is private key content, replacing key file discovery.
	SSHKey string `envconfig:"SSH_KEY"`

	// KnownHosts is known_hosts content, replacing ~/.ssh/known_hosts.
	KnownHosts string `envconfig:"KNOWN_HOSTS"`

	// SkipHostKeyCheck disables host key verification. Use with caution.
	SkipHostKeyCheck bool `envconfig:"SKIP_HOST_KEY_CHECK"`
}

// LoadEnv reads CORTEX_* environment variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("cortex", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &env, nil
}

// ApplyEnv merges environment overrides into the config.
func (c *DeployConfig) ApplyEnv(env *Env) {
	if env == nil {
		return
	}
	c.SSHKeyData = env.SSHKey
	c.KnownHostsData = env.KnownHosts
	c.SkipHostKeyCheck = env.SkipHostKeyCheck
}
