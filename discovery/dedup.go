package discovery

import "github.com/cloudcarto/surveyor/types"

// Deduplicate folds resources in discovery order into one record per
// identity (self link, or type:id when absent). Later observations of
// the same resource merge into the earlier one rather than replacing
// it, so two scanners that each partially observe a shared object
// converge into a single enriched record.
func Deduplicate(resources []types.DiscoveredResource) []types.DiscoveredResource {
	byKey := make(map[string]int, len(resources))
	deduped := make([]types.DiscoveredResource, 0, len(resources))

	for _, resource := range resources {
		key := resource.DedupKey()
		idx, seen := byKey[key]
		if !seen {
			byKey[key] = len(deduped)
			deduped = append(deduped, resource)
			continue
		}
		deduped[idx] = mergeResource(deduped[idx], resource)
	}
	return deduped
}

// mergeResource combines a later observation into an earlier one:
// relationships are unioned (duplicate means same kind and target),
// labels and properties are shallow-merged with the later keys
// winning, and every other field is taken from the later occurrence.
func mergeResource(earlier, later types.DiscoveredResource) types.DiscoveredResource {
	merged := later

	relationships := append([]types.ResourceRelationship(nil), earlier.Relationships...)
	for _, rel := range later.Relationships {
		if !containsRelationship(relationships, rel) {
			relationships = append(relationships, rel)
		}
	}
	merged.Relationships = relationships

	merged.Labels = mergeStringMaps(earlier.Labels, later.Labels)
	merged.Properties = mergePropertyMaps(earlier.Properties, later.Properties)

	return merged
}

func containsRelationship(relationships []types.ResourceRelationship, rel types.ResourceRelationship) bool {
	for _, existing := range relationships {
		if existing.Kind == rel.Kind && existing.TargetSelfLink == rel.TargetSelfLink {
			return true
		}
	}
	return false
}

func mergeStringMaps(earlier, later map[string]string) map[string]string {
	if earlier == nil && later == nil {
		return nil
	}
	merged := make(map[string]string, len(earlier)+len(later))
	for k, v := range earlier {
		merged[k] = v
	}
	for k, v := range later {
		merged[k] = v
	}
	return merged
}

func mergePropertyMaps(earlier, later map[string]any) map[string]any {
	if earlier == nil && later == nil {
		return nil
	}
	merged := make(map[string]any, len(earlier)+len(later))
	for k, v := range earlier {
		merged[k] = v
	}
	for k, v := range later {
		merged[k] = v
	}
	return merged
}
