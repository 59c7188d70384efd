package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkValidate(t *testing.T) {
	tests := []struct {
		name    string
		link    Link
		wantErr bool
	}{
		{
			name: "valid link",
			link: Link{FromNode: "A", FromSocket: "value", ToNode: "B", ToSocket: "in"},
		},
		{
			name:    "empty from node",
			link:    Link{FromSocket: "value", ToNode: "B", ToSocket: "in"},
			wantErr: true,
		},
		{
			name:    "empty to node",
			link:    Link{FromNode: "A", FromSocket: "value", ToSocket: "in"},
			wantErr: true,
		},
		{
			name:    "empty sockets",
			link:    Link{FromNode: "A", ToNode: "B"},
			wantErr: true,
		},
		{
			name:    "self loop",
			link:    Link{FromNode: "A", FromSocket: "value", ToNode: "A", ToSocket: "in"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLinkSetDifference(t *testing.T) {
	ab := Link{FromNode: "A", FromSocket: "value", ToNode: "B", ToSocket: "in"}
	bc := Link{FromNode: "B", FromSocket: "value", ToNode: "C", ToSocket: "in"}
	ac := Link{FromNode: "A", FromSocket: "value", ToNode: "C", ToSocket: "alt"}

	old := NewLinkSet([]Link{ab, bc})
	cur := NewLinkSet([]Link{bc, ac})

	added := cur.Difference(old)
	require.Len(t, added, 1)
	assert.Equal(t, ac, added[0])

	removed := old.Difference(cur)
	require.Len(t, removed, 1)
	assert.Equal(t, ab, removed[0])
}

// Removing a link and re-adding an identical 4-tuple within the same diff
// cycle nets to no delta: the link is present in both sets, so it appears in
// neither difference.
func TestLinkSetRemoveReAddCancels(t *testing.T) {
	xy := Link{FromNode: "X", FromSocket: "value", ToNode: "Y", ToSocket: "in"}

	old := NewLinkSet([]Link{xy})
	cur := NewLinkSet([]Link{xy})

	assert.Empty(t, cur.Difference(old))
	assert.Empty(t, old.Difference(cur))
}

func TestLinkSetHasFrom(t *testing.T) {
	s := NewLinkSet([]Link{
		{FromNode: "A", FromSocket: "value", ToNode: "B", ToSocket: "in"},
		{FromNode: "A", FromSocket: "aux", ToNode: "C", ToSocket: "in"},
	})

	assert.True(t, s.HasFrom("A", "value"))
	assert.True(t, s.HasFrom("A", "aux"))
	assert.False(t, s.HasFrom("A", "other"))
	assert.False(t, s.HasFrom("B", "value"))
}
