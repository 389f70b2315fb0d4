package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcarto/surveyor/types"
)

func TestStaticCredentials_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cred      types.Credential
		projectID string
		wantValid bool
	}{
		{
			name: "authenticated matching project",
			cred: types.Credential{
				ProjectID:     "demo",
				PrincipalID:   "svc@demo.iam.gserviceaccount.com",
				Authenticated: true,
			},
			projectID: "demo",
			wantValid: true,
		},
		{
			name:      "not authenticated",
			cred:      types.Credential{ProjectID: "demo"},
			projectID: "demo",
			wantValid: false,
		},
		{
			name: "project mismatch",
			cred: types.Credential{
				ProjectID:     "demo",
				Authenticated: true,
			},
			projectID: "other",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewStaticCredentials(tt.cred)
			result, err := mgr.ValidateCredentials(context.Background(), tt.projectID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				assert.NotEmpty(t, result.Error)
			}
		})
	}
}

func TestStaticRegions_FilterRegions(t *testing.T) {
	known := []string{"us-central1", "us-east1", "europe-west1"}
	mgr := NewStaticRegions(known)

	tests := []struct {
		name      string
		selection types.RegionSelection
		want      []string
	}{
		{
			name:      "all regions",
			selection: types.RegionSelection{All: true},
			want:      []string{"europe-west1", "us-central1", "us-east1"},
		},
		{
			name:      "empty selection means all",
			selection: types.RegionSelection{},
			want:      []string{"europe-west1", "us-central1", "us-east1"},
		},
		{
			name:      "explicit subset",
			selection: types.RegionSelection{Regions: []string{"us-east1", "us-central1"}},
			want:      []string{"us-central1", "us-east1"},
		},
		{
			name:      "unknown regions dropped",
			selection: types.RegionSelection{Regions: []string{"us-central1", "mars-north1"}},
			want:      []string{"us-central1"},
		},
		{
			name: "exclusions applied",
			selection: types.RegionSelection{
				All:            true,
				ExcludeRegions: []string{"us-east1"},
			},
			want: []string{"europe-west1", "us-central1"},
		},
		{
			name: "exclusion empties explicit list",
			selection: types.RegionSelection{
				Regions:        []string{"us-east1"},
				ExcludeRegions: []string{"us-east1"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mgr.FilterRegions(context.Background(), tt.selection, "demo")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticRegions_DefaultTable(t *testing.T) {
	mgr := NewStaticRegions(nil)
	got, err := mgr.FilterRegions(context.Background(), types.RegionSelection{All: true}, "demo")
	require.NoError(t, err)
	assert.Len(t, got, len(DefaultRegions))
}
