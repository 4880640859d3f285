// Package blob provides the certificate blob stores: a local directory and
// an SFTP server. New selects one from the storage configuration.
package blob

import (
	"fmt"
	"path"
	"strings"

	"github.com/JonMunkholm/coursetrack/internal/config"
	"github.com/JonMunkholm/coursetrack/internal/core"
)

// Storage destinations accepted by New.
const (
	DestinationLocal = "LOCAL"
	DestinationSFTP  = "SFTP"
)

// New returns the blob store named by cfg.Destination.
func New(cfg config.StorageConfig) (core.BlobStore, error) {
	switch strings.ToUpper(strings.TrimSpace(cfg.Destination)) {
	case DestinationLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case DestinationSFTP:
		return NewSFTPStore(SFTPConfig{
			Host:          cfg.SFTPHost,
			Port:          cfg.SFTPPort,
			User:          cfg.SFTPUser,
			Pass:          cfg.SFTPPass,
			RemoteDir:     cfg.SFTPRemoteDir,
			KnownHosts:    cfg.SFTPKnownHosts,
			Timeout:       cfg.SFTPTimeout,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage destination %q (want %s or %s)", cfg.Destination, DestinationLocal, DestinationSFTP)
	}
}

// objectName rejects names that would escape the target directory.
func objectName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return name, nil
}

// publicURL joins base and name, or returns "" when base is unset.
func publicURL(base, name string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + name
}
