package cmd

import (
	"fmt"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/config"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/device"
)

// deviceAddress picks the device address from args, falling back to
// CORTEX_DEVICE.
func deviceAddress(args []string, env *config.Env) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if env.Device != "" {
		PrintInfo("Using device from CORTEX_DEVICE: %s", env.Device)
		return env.Device, nil
	}
	return "", fmt.Errorf("no device specified. Usage: cortexdeploy %s <device> or set CORTEX_DEVICE", "<command>")
}

// resolveDevice loads configuration, applies environment overrides and any
// flag-level mutation, and parses the device address.
func resolveDevice(args []string, mutate func(*config.DeployConfig)) (*device.Resolution, *config.DeployConfig, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}

	address, err := deviceAddress(args, env)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadDeployConfig(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv(env)
	if mutate != nil {
		mutate(cfg)
	}

	res, err := device.Parse(address, cfg)
	if err != nil {
		return nil, nil, err
	}
	return res, cfg, nil
}
