package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(hoursAgo float64, id string) SessionMeta {
		return SessionMeta{ID: id, CreatedAt: now.Add(-time.Duration(hoursAgo * float64(time.Hour)))}
	}
	metas := []SessionMeta{at(30, "old"), at(1, "b"), at(2, "c"), at(1, "a"), at(0.5, "d")}

	ids := func(r FilterResult) []string {
		out := make([]string, 0, len(r.Entries))
		for _, e := range r.Entries {
			out = append(out, e.ID)
		}
		return out
	}

	t.Run("window newest first", func(t *testing.T) {
		res := FilterSessions(metas, Filter{Hours: 24}, now)
		assert.Equal(t, []string{"d", "b", "a", "c"}, ids(res))
		assert.False(t, res.Truncated)
		assert.Equal(t, 4, res.Total)
	})

	t.Run("limit truncates", func(t *testing.T) {
		res := FilterSessions(metas, Filter{Hours: 24, Limit: 2}, now)
		assert.Equal(t, []string{"d", "b"}, ids(res))
		assert.True(t, res.Truncated)
		assert.Equal(t, 4, res.Total)
	})

	t.Run("include all", func(t *testing.T) {
		res := FilterSessions(metas, Filter{Hours: 1, IncludeAll: true}, now)
		assert.Len(t, res.Entries, 5)
		assert.Equal(t, "old", res.Entries[4].ID)
	})

	t.Run("nothing matched", func(t *testing.T) {
		res := FilterSessions(metas, Filter{Hours: 0.1}, now)
		assert.Empty(t, res.Entries)
		assert.False(t, res.Truncated)
	})
}
