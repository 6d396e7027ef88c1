package comments

import (
	"testing"

	"campus-forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEffectiveParent(t *testing.T) {
	list := []models.Comment{
		comment("A", nil),
		comment("B", ptr("A")),
		comment("C", ptr("B")), // already-flattened grandchild
	}

	tests := []struct {
		name     string
		parentID *string
		want     *string
	}{
		{"nil parent stays root", nil, nil},
		{"root parent unchanged", ptr("A"), ptr("A")},
		{"reply parent walks up one level", ptr("B"), ptr("A")},
		{"grandchild parent walks one level only", ptr("C"), ptr("B")},
		{"unknown parent degrades to root", ptr("missing"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveEffectiveParent(list, tt.parentID)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestInsertOptimisticKeepsReplyGroupsContiguous(t *testing.T) {
	list := []models.Comment{
		comment("A", nil),
		comment("a1", ptr("A")),
		comment("B", nil),
		comment("b1", ptr("B")),
	}

	out := insertOptimistic(models.CloneComments(list), comment("a2", ptr("A")))

	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"A", "a1", "a2", "B", "b1"}, ids)
}

func TestInsertOptimisticMissingParentAppends(t *testing.T) {
	list := []models.Comment{comment("A", nil)}

	out := insertOptimistic(models.CloneComments(list), comment("x", ptr("evicted")))

	require.Len(t, out, 2)
	assert.Equal(t, "x", out[1].ID)
}

func TestInsertOptimisticDoesNotMutateInput(t *testing.T) {
	list := []models.Comment{
		comment("A", nil),
		comment("B", nil),
	}
	snapshot := models.CloneComments(list)

	_ = insertOptimistic(models.CloneComments(list), comment("a1", ptr("A")))

	assert.Equal(t, snapshot, list)
}
