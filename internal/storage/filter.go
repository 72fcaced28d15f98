package storage

import (
	"sort"
	"time"
)

// Filter selects sessions by age and caps how many are returned.
type Filter struct {
	// Hours is the look-back window; zero or negative disables it.
	Hours float64
	// IncludeAll ignores the window.
	IncludeAll bool
	// Limit caps the number of entries; zero or negative means no cap.
	Limit int
}

// FilterResult distinguishes "nothing matched" from "more matched than shown".
type FilterResult struct {
	Entries   []SessionMeta
	Truncated bool
	Total     int
}

// FilterSessions applies f to metas relative to now. Entries come back newest first.
func FilterSessions(metas []SessionMeta, f Filter, now time.Time) FilterResult {
	matched := make([]SessionMeta, 0, len(metas))
	for _, m := range metas {
		if f.matches(m, now) {
			matched = append(matched, m)
		}
	}
	sortNewestFirst(matched)

	res := FilterResult{Entries: matched, Total: len(matched)}
	if f.Limit > 0 && len(matched) > f.Limit {
		res.Entries = matched[:f.Limit]
		res.Truncated = true
	}
	return res
}

func (f Filter) matches(m SessionMeta, now time.Time) bool {
	if f.IncludeAll || f.Hours <= 0 {
		return true
	}
	cutoff := now.Add(-time.Duration(f.Hours * float64(time.Hour)))
	return !m.CreatedAt.Before(cutoff)
}

func sortNewestFirst(metas []SessionMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].ID > metas[j].ID
		}
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
}
