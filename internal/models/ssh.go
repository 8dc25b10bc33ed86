package models

// SSHConfig holds the defaults used to suspend nodes over SSH.
type SSHConfig struct {
	Username   string
	Port       int
	KeyPath    string
	Command    string // e.g. "sudo systemctl suspend"
	KnownHosts string // known_hosts file; empty skips host key verification
}

// SuspendConfig holds everything needed to suspend one node.
type SuspendConfig struct {
	Host           string
	Port           int
	Username       string
	PrivateKey     []byte // loaded from file path
	KeyPath        string // path to key file
	Command        string
	KnownHostsPath string
}

// SSHResult holds the result of an SSH operation.
type SSHResult struct {
	CommandRun bool
	Output     string
	Error      error
}
