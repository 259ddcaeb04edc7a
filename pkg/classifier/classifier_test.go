package classifier

import (
	"testing"

	"github.com/genzj/warpconnect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg() Config {
	return Config{
		WarpNamePattern:        "warp-*",
		TargetLabel:            "warp",
		NetworkPreferenceLabel: "warp_net",
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		container *types.Container
		wantKind  types.RoleKind
		wantPref  string
		wantSel   string
		wantErr   bool
	}{
		{
			name:      "warp by name, no preference",
			container: &types.Container{ID: "c1", Name: "warp-egress", Labels: map[string]string{}},
			wantKind:  types.RoleWarp,
		},
		{
			name:      "warp by name with preference label",
			container: &types.Container{ID: "c1", Name: "warp-egress", Labels: map[string]string{"warp_net": "net-b"}},
			wantKind:  types.RoleWarp,
			wantPref:  "net-b",
		},
		{
			name:      "warp name pattern does not match non-warp names",
			container: &types.Container{ID: "c2", Name: "nginx", Labels: map[string]string{"warp": "warp-egress"}},
			wantKind:  types.RoleTarget,
			wantSel:   "warp-egress",
		},
		{
			name:      "ignored container",
			container: &types.Container{ID: "c3", Name: "redis", Labels: map[string]string{}},
			wantKind:  types.RoleIgnored,
		},
		{
			name:      "malformed target label",
			container: &types.Container{ID: "c4", Name: "app", Labels: map[string]string{"warp": "   "}},
			wantErr:   true,
		},
		{
			name:      "malformed network preference label on a warp",
			container: &types.Container{ID: "c5", Name: "warp-egress", Labels: map[string]string{"warp_net": "  "}},
			wantErr:   true,
		},
		{
			name:      "warp classification is independent of live state, never consults labels beyond metadata",
			container: &types.Container{ID: "c6", Name: "warp-2", Labels: nil},
			wantKind:  types.RoleWarp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := Classify(tt.container, cfg())
			if tt.wantErr {
				require.Error(t, err)
				var classErr *types.ClassificationError
				assert.ErrorAs(t, err, &classErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, role.Kind)
			assert.Equal(t, tt.wantPref, role.PreferredNetwork)
			assert.Equal(t, tt.wantSel, role.WarpSelector)
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := &types.Container{ID: "c1", Name: "warp-egress", Labels: map[string]string{"warp_net": "net-a"}}
	r1, err1 := Classify(c, cfg())
	r2, err2 := Classify(c, cfg())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1, r2)
}
