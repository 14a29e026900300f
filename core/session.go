package core

import "time"

// Session is the search state owned by one client connection across its
// lifetime: the current query (empty means no active search), the sort mode,
// the deduplication cache and the history ring.
//
// A session is mutated only by its orchestrator goroutine in response to
// client messages, timer ticks and worker replies, so it carries no locking.
// It vanishes with the connection; nothing is persisted across restarts.
type Session struct {
	ID      string
	Query   string
	SortBy  SortMode
	Seen    *SeenCache
	History *HistoryRing
	Created time.Time
	Updated time.Time
}

// NewSession creates a session with default-capacity dedup cache and history
// ring.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:      id,
		SortBy:  SortRecency,
		Seen:    NewSeenCache(DefaultSeenCapacity),
		History: NewHistoryRing(DefaultHistoryCapacity),
		Created: now,
		Updated: now,
	}
}

// Active reports whether a search is currently set.
func (s *Session) Active() bool { return s.Query != "" }

// SetSearch installs a new query and sort mode and clears the dedup cache so
// the fresh search starts from a clean slate.
func (s *Session) SetSearch(query string, sortBy SortMode) {
	s.Query = query
	s.SortBy = sortBy
	s.Seen.Clear()
	s.Updated = time.Now().UTC()
}

// ClearSearch resets the query and dedup cache. The history ring is kept:
// past batches remain replayable until the connection closes.
func (s *Session) ClearSearch() {
	s.Query = ""
	s.Seen.Clear()
	s.Updated = time.Now().UTC()
}

// MarkSeen records every item's URL in the dedup cache.
func (s *Session) MarkSeen(items []Item) {
	for _, it := range items {
		s.Seen.Add(it.URL)
	}
}

// FilterNew returns the items whose URLs have not been seen in this session,
// marking the survivors as seen. Items without a URL always survive.
func (s *Session) FilterNew(items []Item) []Item {
	fresh := make([]Item, 0, len(items))
	for _, it := range items {
		if s.Seen.Add(it.URL) {
			fresh = append(fresh, it)
		}
	}
	return fresh
}
