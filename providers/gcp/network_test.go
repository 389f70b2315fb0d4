package gcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// MockNetworkClient for testing
type MockNetworkClient struct {
	networks    []Network
	subnetworks []Subnetwork
	firewalls   []Firewall

	networksErr  error
	firewallsErr error
}

func (m *MockNetworkClient) ListNetworks(ctx context.Context, project string) ([]Network, error) {
	if m.networksErr != nil {
		return nil, m.networksErr
	}
	return m.networks, nil
}

func (m *MockNetworkClient) ListSubnetworks(ctx context.Context, project string) ([]Subnetwork, error) {
	return m.subnetworks, nil
}

func (m *MockNetworkClient) ListFirewalls(ctx context.Context, project string) ([]Firewall, error) {
	if m.firewallsErr != nil {
		return nil, m.firewallsErr
	}
	return m.firewalls, nil
}

func TestNetworkScanner_Scan(t *testing.T) {
	client := &MockNetworkClient{
		networks: []Network{
			{ID: "n-1", Name: "default", SelfLink: "projects/demo/global/networks/default", AutoCreateSubnetworks: true},
		},
		subnetworks: []Subnetwork{
			{
				ID:          "sn-1",
				Name:        "default-us",
				SelfLink:    "projects/demo/regions/us-central1/subnetworks/default-us",
				Region:      "us-central1",
				Network:     "projects/demo/global/networks/default",
				IPCIDRRange: "10.128.0.0/20",
			},
		},
		firewalls: []Firewall{
			{
				ID:        "fw-1",
				Name:      "allow-ssh",
				SelfLink:  "projects/demo/global/firewalls/allow-ssh",
				Network:   "projects/demo/global/networks/default",
				Direction: "INGRESS",
				Priority:  1000,
				Allowed:   []string{"tcp:22"},
			},
		},
	}

	s := NewNetworkScanner(client)
	assert.True(t, s.IsGlobal())

	result, err := s.Scan(context.Background(), scanner.ScanContext{ProjectID: "demo", Region: "us-central1"})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Resources, 3)

	byType := make(map[string]types.DiscoveredResource)
	for _, r := range result.Resources {
		byType[r.Type] = r
	}

	assert.Equal(t, types.GlobalRegion, byType["google_compute_network"].Region)
	assert.Equal(t, "us-central1", byType["google_compute_subnetwork"].Region)

	subnet := byType["google_compute_subnetwork"]
	require.Len(t, subnet.Relationships, 1)
	assert.Equal(t, "projects/demo/global/networks/default", subnet.Relationships[0].TargetSelfLink)

	firewall := byType["google_compute_firewall"]
	assert.Equal(t, 1000, firewall.Properties["priority"])
}

func TestNetworkScanner_PartialFailure(t *testing.T) {
	client := &MockNetworkClient{
		subnetworks:  []Subnetwork{{ID: "sn-1", Name: "keep", Region: "us-central1", Network: "net"}},
		networksErr:  errors.New("timeout"),
		firewallsErr: errors.New("forbidden"),
	}

	s := NewNetworkScanner(client)
	result, err := s.Scan(context.Background(), scanner.ScanContext{ProjectID: "demo", Region: "us-central1"})
	require.NoError(t, err)

	assert.Len(t, result.Resources, 1)
	require.Len(t, result.Errors, 2)
	operations := []string{result.Errors[0].Operation, result.Errors[1].Operation}
	assert.Contains(t, operations, "listNetworks")
	assert.Contains(t, operations, "listFirewalls")
}
