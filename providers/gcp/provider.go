package gcp

import "github.com/cloudcarto/surveyor/scanner"

// Compile-time interface checks.
var (
	_ scanner.ServiceScanner = (*ComputeScanner)(nil)
	_ scanner.ServiceScanner = (*StorageScanner)(nil)
	_ scanner.ServiceScanner = (*GKEScanner)(nil)
	_ scanner.ServiceScanner = (*IAMScanner)(nil)
	_ scanner.ServiceScanner = (*NetworkScanner)(nil)

	_ ComputeAPI   = (*Snapshot)(nil)
	_ StorageAPI   = (*Snapshot)(nil)
	_ ContainerAPI = (*Snapshot)(nil)
	_ IAMAPI       = (*Snapshot)(nil)
	_ NetworkAPI   = (*Snapshot)(nil)
)

// RegisterAll registers one scanner per configured client. Nil clients
// are skipped so callers can wire a subset.
func RegisterAll(registry *scanner.Registry, clients Clients) {
	if clients.Compute != nil {
		registry.Register(NewComputeScanner(clients.Compute))
	}
	if clients.Storage != nil {
		registry.Register(NewStorageScanner(clients.Storage))
	}
	if clients.Container != nil {
		registry.Register(NewGKEScanner(clients.Container))
	}
	if clients.IAM != nil {
		registry.Register(NewIAMScanner(clients.IAM))
	}
	if clients.Network != nil {
		registry.Register(NewNetworkScanner(clients.Network))
	}
}
