// Package gcp implements the service scanners for a GCP-shaped cloud
// account. Scanners talk to the provider through the narrow API
// interfaces below; the real HTTP clients (and credential plumbing)
// live outside this module.
package gcp

import (
	"context"
	"time"
)

// ComputeAPI lists compute resources for one project and region.
type ComputeAPI interface {
	ListInstances(ctx context.Context, project, region string) ([]Instance, error)
	ListDisks(ctx context.Context, project, region string) ([]Disk, error)
	ListAddresses(ctx context.Context, project, region string) ([]Address, error)
}

// StorageAPI lists buckets. Bucket listing is project-wide.
type StorageAPI interface {
	ListBuckets(ctx context.Context, project string) ([]Bucket, error)
}

// ContainerAPI lists Kubernetes clusters for one project and region.
type ContainerAPI interface {
	ListClusters(ctx context.Context, project, region string) ([]Cluster, error)
}

// IAMAPI lists project-level identity resources.
type IAMAPI interface {
	ListServiceAccounts(ctx context.Context, project string) ([]ServiceAccount, error)
	ListRoles(ctx context.Context, project string) ([]Role, error)
}

// NetworkAPI lists VPC resources. Networks and firewalls are global;
// subnetworks carry their own region field.
type NetworkAPI interface {
	ListNetworks(ctx context.Context, project string) ([]Network, error)
	ListSubnetworks(ctx context.Context, project string) ([]Subnetwork, error)
	ListFirewalls(ctx context.Context, project string) ([]Firewall, error)
}

// Clients bundles one client per service scanner.
type Clients struct {
	Compute   ComputeAPI
	Storage   StorageAPI
	Container ContainerAPI
	IAM       IAMAPI
	Network   NetworkAPI
}

// Instance is a compute VM as reported by the provider.
type Instance struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	SelfLink    string            `json:"self_link"`
	Zone        string            `json:"zone"`
	MachineType string            `json:"machine_type"`
	Status      string            `json:"status"`
	Network     string            `json:"network,omitempty"`
	Disks       []string          `json:"disks,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitzero"`
}

// Disk is a persistent disk.
type Disk struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	SelfLink  string            `json:"self_link"`
	Zone      string            `json:"zone"`
	SizeGB    int64             `json:"size_gb"`
	DiskType  string            `json:"disk_type"`
	Status    string            `json:"status"`
	Labels    map[string]string `json:"labels,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitzero"`
}

// Address is a reserved IP address.
type Address struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SelfLink string `json:"self_link"`
	Address  string `json:"address"`
	Status   string `json:"status"`
	Purpose  string `json:"purpose,omitempty"`
	Network  string `json:"network,omitempty"`
}

// Bucket is an object storage bucket.
type Bucket struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	SelfLink     string            `json:"self_link"`
	Location     string            `json:"location"`
	StorageClass string            `json:"storage_class"`
	Versioning   bool              `json:"versioning"`
	Labels       map[string]string `json:"labels,omitempty"`
	CreatedAt    time.Time         `json:"created_at,omitzero"`
}

// Cluster is a managed Kubernetes cluster with its node pools.
type Cluster struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	SelfLink      string            `json:"self_link"`
	Location      string            `json:"location"`
	Status        string            `json:"status"`
	MasterVersion string            `json:"master_version,omitempty"`
	Network       string            `json:"network,omitempty"`
	NodePools     []NodePool        `json:"node_pools,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitzero"`
}

// NodePool is one node pool of a cluster.
type NodePool struct {
	Name        string `json:"name"`
	SelfLink    string `json:"self_link"`
	Status      string `json:"status"`
	NodeCount   int    `json:"node_count"`
	MachineType string `json:"machine_type,omitempty"`
	Version     string `json:"version,omitempty"`
}

// ServiceAccount is a project-level service identity.
type ServiceAccount struct {
	UniqueID    string `json:"unique_id"`
	Email       string `json:"email"`
	SelfLink    string `json:"self_link"`
	DisplayName string `json:"display_name,omitempty"`
	Disabled    bool   `json:"disabled"`
}

// Role is a project-level custom IAM role.
type Role struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Description string `json:"description,omitempty"`
}

// Network is a VPC network.
type Network struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	SelfLink              string    `json:"self_link"`
	AutoCreateSubnetworks bool      `json:"auto_create_subnetworks"`
	Description           string    `json:"description,omitempty"`
	CreatedAt             time.Time `json:"created_at,omitzero"`
}

// Subnetwork is one regional subnet of a network.
type Subnetwork struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SelfLink    string `json:"self_link"`
	Region      string `json:"region"`
	Network     string `json:"network"`
	IPCIDRRange string `json:"ip_cidr_range"`
}

// Firewall is one VPC firewall rule.
type Firewall struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	SelfLink  string   `json:"self_link"`
	Network   string   `json:"network"`
	Direction string   `json:"direction"`
	Priority  int      `json:"priority"`
	Allowed   []string `json:"allowed,omitempty"`
	Denied    []string `json:"denied,omitempty"`
}
