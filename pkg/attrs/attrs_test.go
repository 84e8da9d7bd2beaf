package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "bloodlink/pkg/domain"
)

func TestExtractString(t *testing.T) {
	matchID := id.MatchID(uuid.New())
	attrs := []any{"reason", "late", "match_id", matchID, "count", 3, "dangling"}

	assert.Equal(t, "late", ExtractString(attrs, "reason"))
	assert.Equal(t, matchID.String(), ExtractString(attrs, "match_id"))
	assert.Empty(t, ExtractString(attrs, "count"))
	assert.Empty(t, ExtractString(attrs, "dangling"))
	assert.Empty(t, ExtractString(attrs, "missing"))
}
