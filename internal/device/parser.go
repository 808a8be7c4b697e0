// Package device turns human-supplied connection strings into deployment
// strategies or plain transport URIs. Parsing is purely syntactic: no network
// or filesystem I/O happens here.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/config"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/deploy"
	"github.com/WestonVoglesonger/CORTEX-sub000/internal/security"
)

// Resolution is the outcome of parsing a connection string: exactly one of
// Deployer (auto-deploy path) or TransportURI (manual path, agent assumed
// already running) is set, never both.
type Resolution struct {
	Deployer     deploy.Deployer
	TransportURI string
}

// manualSchemes are returned verbatim as transport URIs.
var manualSchemes = []string{"tcp://", "serial://", "shm://", "local://"}

const acceptedForms = `accepted device address forms:
  user@host               SSH deployment (port 22)
  user@host:port          SSH deployment, custom SSH port
  user@[ipv6]             SSH deployment to an IPv6 address
  user@[ipv6]:port        SSH deployment to an IPv6 address, custom port
  tcp://host:port         manual: adapter already running
  serial://device         manual: adapter already running
  shm://name              manual: adapter already running
  local://                manual: in-process adapter (default when empty)`

// Parse classifies address and returns either a constructed deployer or a
// transport URI. An empty address defaults to local://.
func Parse(address string, cfg *config.DeployConfig) (*Resolution, error) {
	address = strings.TrimSpace(address)

	if address == "" {
		return &Resolution{TransportURI: "local://"}, nil
	}

	for _, scheme := range manualSchemes {
		if strings.HasPrefix(address, scheme) {
			return &Resolution{TransportURI: address}, nil
		}
	}

	// Reserved for a future on-probe deployment strategy. Failing loudly here
	// beats silently treating the address as a hostname.
	if strings.HasPrefix(address, "stm32:") {
		return nil, fmt.Errorf("stm32 deployment is not yet implemented (address %q)", address)
	}

	if strings.Contains(address, "@") {
		target, err := parseSSHTarget(address)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			cfg = config.DefaultDeployConfig()
		}
		target.AdapterPort = cfg.AdapterPort
		return &Resolution{Deployer: deploy.NewSSHDeployer(target, cfg)}, nil
	}

	return nil, fmt.Errorf("unrecognized device address %q\n%s", address, acceptedForms)
}

// parseSSHTarget parses user@host, user@host:port, user@[ipv6], and
// user@[ipv6]:port forms.
func parseSSHTarget(address string) (deploy.DeviceTarget, error) {
	var target deploy.DeviceTarget

	user, hostPart, _ := strings.Cut(address, "@")
	if err := security.ValidateUnixUser(user); err != nil {
		return target, fmt.Errorf("invalid user in %q: %w", address, err)
	}

	host, portStr, err := splitHostPort(hostPart, address)
	if err != nil {
		return target, err
	}
	if err := security.ValidateHost(host); err != nil {
		return target, fmt.Errorf("invalid host in %q: %w", address, err)
	}

	port := 22
	if portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return target, fmt.Errorf("invalid SSH port %q in %q", portStr, address)
		}
		if err := security.ValidatePort(port); err != nil {
			return target, fmt.Errorf("invalid SSH port in %q: %w", address, err)
		}
	}

	target.User = user
	target.Host = host
	target.SSHPort = port
	return target, nil
}

func splitHostPort(hostPart, address string) (host, port string, err error) {
	if hostPart == "" {
		return "", "", fmt.Errorf("missing host in %q\n%s", address, acceptedForms)
	}

	// Bracketed IPv6: user@[::1] or user@[::1]:2222
	if strings.HasPrefix(hostPart, "[") {
		end := strings.Index(hostPart, "]")
		if end < 0 {
			return "", "", fmt.Errorf("unclosed '[' in IPv6 address %q", address)
		}
		host = hostPart[1:end]
		if host == "" {
			return "", "", fmt.Errorf("empty IPv6 address in %q", address)
		}
		rest := hostPart[end+1:]
		if rest == "" {
			return host, "", nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", fmt.Errorf("unexpected %q after IPv6 address in %q", rest, address)
		}
		return host, rest[1:], nil
	}

	// A bare host with more than one colon is an unbracketed IPv6 literal;
	// the port would be ambiguous.
	if strings.Count(hostPart, ":") > 1 {
		return "", "", fmt.Errorf("IPv6 addresses must be bracketed, e.g. user@[%s]", hostPart)
	}

	host, port, _ = strings.Cut(hostPart, ":")
	return host, port, nil
}
