package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statline-io/statline-engine/pkg/models"
)

func TestDeduplicateKeepsNewestPerPath(t *testing.T) {
	base := time.Now().UTC()
	events := []models.ChangeEvent{
		{Path: "src/a.py", ChangeType: models.ChangeCreated, Timestamp: base},
		{Path: "src/b.py", ChangeType: models.ChangeModified, Timestamp: base.Add(time.Second)},
		{Path: "src/a.py", ChangeType: models.ChangeModified, Timestamp: base.Add(2 * time.Second)},
		{Path: "src/a.py", ChangeType: models.ChangeDeleted, Timestamp: base.Add(3 * time.Second)},
	}

	out := Deduplicate(events)
	require.Len(t, out, 2)
	// First-seen order, newest event per path.
	assert.Equal(t, "src/a.py", out[0].Path)
	assert.Equal(t, models.ChangeDeleted, out[0].ChangeType)
	assert.Equal(t, "src/b.py", out[1].Path)
	assert.Equal(t, models.ChangeModified, out[1].ChangeType)
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}
