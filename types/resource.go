package types

import "time"

// RelationshipKind classifies a directed edge between two resources.
type RelationshipKind string

const (
	RelationshipDependsOn  RelationshipKind = "depends_on"
	RelationshipContains   RelationshipKind = "contains"
	RelationshipReferences RelationshipKind = "references"
	RelationshipAttachedTo RelationshipKind = "attached_to"
)

// GlobalRegion marks resources that are not scoped to any region.
const GlobalRegion = "global"

// DiscoveredResource is a single cloud resource as observed by a
// service scanner, normalized for the IaC generator.
type DiscoveredResource struct {
	ID            string                 `json:"id"`
	SelfLink      string                 `json:"self_link,omitempty"`
	Type          string                 `json:"type"`
	ProviderType  string                 `json:"provider_type,omitempty"`
	Service       string                 `json:"service"`
	Region        string                 `json:"region"`
	Name          string                 `json:"name,omitempty"`
	Labels        map[string]string      `json:"labels,omitempty"`
	Properties    map[string]any         `json:"properties,omitempty"`
	Relationships []ResourceRelationship `json:"relationships,omitempty"`
	CreatedAt     time.Time              `json:"created_at,omitzero"`
	Status        string                 `json:"status,omitempty"`
}

// ResourceRelationship is a directed edge from the owning resource to
// another resource, which may not have been discovered yet.
type ResourceRelationship struct {
	Kind           RelationshipKind `json:"kind"`
	TargetSelfLink string           `json:"target_self_link"`
	TargetType     string           `json:"target_type,omitempty"`
}

// DedupKey returns the identity used to fold duplicate observations of
// the same underlying resource. SelfLink wins when present.
func (r *DiscoveredResource) DedupKey() string {
	if r.SelfLink != "" {
		return r.SelfLink
	}
	return r.Type + ":" + r.ID
}

// HasRelationship reports whether an equivalent edge already exists.
// Two edges are equivalent when kind and target self link match.
func (r *DiscoveredResource) HasRelationship(rel ResourceRelationship) bool {
	for _, existing := range r.Relationships {
		if existing.Kind == rel.Kind && existing.TargetSelfLink == rel.TargetSelfLink {
			return true
		}
	}
	return false
}
