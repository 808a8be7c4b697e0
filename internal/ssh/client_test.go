package ssh

import (
	"testing"
	"time"
)

func TestNewClient_DefaultPort(t *testing.T) {
	client := NewClient("host", "user", 0, "/key")
	if client.Port != 22 {
		t.Errorf("expected default port 22, got %d", client.Port)
	}
}

func TestNewClient_CustomPort(t *testing.T) {
	client := NewClient("host", "user", 2222, "/key")
	if client.Port != 2222 {
		t.Errorf("expected port 2222, got %d", client.Port)
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	client := NewClient("host", "user", 22, "/key",
		WithTimeout(5*time.Second),
		WithKeyData("keydata"),
		WithKnownHostsData("hostdata"),
		WithInsecureHostKey(),
	)

	if client.opts.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.opts.timeout)
	}
	if client.opts.keyData != "keydata" {
		t.Errorf("expected keyData set, got %q", client.opts.keyData)
	}
	if client.opts.knownHostsData != "hostdata" {
		t.Errorf("expected knownHostsData set, got %q", client.opts.knownHostsData)
	}
	if !client.opts.insecureHostKey {
		t.Error("expected insecureHostKey true")
	}
}

func TestIsConnected_NotConnected(t *testing.T) {
	client := NewClient("host", "user", 22, "/key")
	if client.IsConnected() {
		t.Error("expected IsConnected() to return false before Connect")
	}
}

func TestNewSession_NotConnected(t *testing.T) {
	client := NewClient("host", "user", 22, "/key")
	if _, err := client.NewSession(); err == nil {
		t.Error("expected error creating session without connection")
	}
}

func TestClose_NotConnected(t *testing.T) {
	client := NewClient("host", "user", 22, "/key")
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client: %v", err)
	}
}
