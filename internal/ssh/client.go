package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/WestonVoglesonger/CORTEX-sub000/internal/constants"
)

// Client represents an SSH client connection to a target device.
//
// Authentication is public-key only by construction: no password or
// keyboard-interactive methods are ever offered, so a successful Connect
// doubles as the key-based access preflight.
type Client struct {
	Host    string
	User    string
	Port    int
	KeyPath string
	opts    clientOptions
	client  *ssh.Client
}

type clientOptions struct {
	timeout         time.Duration
	keyData         string
	knownHostsData  string
	insecureHostKey bool
}

// ClientOption customizes a Client.
type ClientOption func(*clientOptions)

// WithTimeout sets the connection timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithKeyData supplies private key content directly, bypassing KeyPath.
// Used for CI/CD where the key lives in CORTEX_SSH_KEY.
func WithKeyData(key string) ClientOption {
	return func(o *clientOptions) { o.keyData = key }
}

// WithKnownHostsData supplies known_hosts content directly, for CI/CD where
// no ~/.ssh/known_hosts exists.
func WithKnownHostsData(data string) ClientOption {
	return func(o *clientOptions) { o.knownHostsData = data }
}

// WithInsecureHostKey disables host key verification. Not recommended outside
// throwaway lab devices.
func WithInsecureHostKey() ClientOption {
	return func(o *clientOptions) { o.insecureHostKey = true }
}

// NewClient creates a new SSH client
func NewClient(host, user string, port int, keyPath string, opts ...ClientOption) *Client {
	if port == 0 {
		port = constants.DefaultSSHPort
	}
	c := &Client{
		Host:    host,
		User:    user,
		Port:    port,
		KeyPath: keyPath,
		opts:    clientOptions{timeout: constants.ConnectTimeout},
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Connect establishes an SSH connection using key-based authentication only.
func (c *Client) Connect() error {
	signer, err := c.loadPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to load private key: %w", err)
	}

	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return fmt.Errorf("host key verification failed: %w", err)
	}

	config := &ssh.ClientConfig{
		User: c.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.opts.timeout,
	}

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.client = client
	return nil
}

// Close closes the SSH connection
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.client != nil
}

// NewSession creates a new SSH session
func (c *Client) NewSession() (*ssh.Session, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	return c.client.NewSession()
}

// loadPrivateKey loads the SSH private key
func (c *Client) loadPrivateKey() (ssh.Signer, error) {
	if c.opts.keyData != "" {
		signer, err := ssh.ParsePrivateKey([]byte(c.opts.keyData))
		if err != nil {
			return nil, fmt.Errorf("failed to parse CORTEX_SSH_KEY: %w", err)
		}
		return signer, nil
	}

	keyPath := c.KeyPath
	if keyPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		// Try common key locations
		keyPaths := []string{
			filepath.Join(homeDir, ".ssh", "id_ed25519"),
			filepath.Join(homeDir, ".ssh", "id_rsa"),
		}
		for _, p := range keyPaths {
			if _, err := os.Stat(p); err == nil {
				keyPath = p
				break
			}
		}
		if keyPath == "" {
			return nil, fmt.Errorf("no SSH key found (set CORTEX_SSH_KEY for CI/CD)")
		}
	}

	// Expand ~ in path
	if len(keyPath) >= 2 && keyPath[:2] == "~/" {
		homeDir, _ := os.UserHomeDir()
		keyPath = filepath.Join(homeDir, keyPath[2:])
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return signer, nil
}

// hostKeyCallback returns the host key callback function
// SECURITY: This function requires a valid known_hosts file by default.
// In CI/CD, set CORTEX_KNOWN_HOSTS with the content of known_hosts or
// CORTEX_SKIP_HOST_KEY_CHECK=true to skip verification (not recommended).
func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.opts.knownHostsData != "" {
		// Write to temp file for knownhosts.New()
		tmpFile, err := os.CreateTemp("", "known_hosts")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp known_hosts: %w", err)
		}
		defer os.Remove(tmpFile.Name())

		if _, err := tmpFile.WriteString(c.opts.knownHostsData); err != nil {
			return nil, fmt.Errorf("failed to write temp known_hosts: %w", err)
		}
		tmpFile.Close()

		callback, err := knownhosts.New(tmpFile.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse CORTEX_KNOWN_HOSTS: %w", err)
		}
		return callback, nil
	}

	if c.opts.insecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("SSH known_hosts file not found at %s. "+
			"Please connect to the device manually first with: ssh %s@%s -p %d\n"+
			"For CI/CD, set CORTEX_KNOWN_HOSTS or CORTEX_SKIP_HOST_KEY_CHECK=true",
			knownHostsPath, c.User, c.Host, c.Port)
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}

	return callback, nil
}
