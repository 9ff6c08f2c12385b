package tracker

import (
	"sort"
)

const leaderboardSize = 10

// Entry is one leaderboard row with the as-of-now total.
type Entry struct {
	UserID  string
	Name    string
	TotalMS int64
}

// NameResolver turns a member ID into a display name. Lookups may hit the
// network; the builder calls it outside the engine lock and falls back to a
// raw mention when it fails.
type NameResolver interface {
	DisplayName(guildID, userID string) (string, error)
}

// TopGlobal builds the global top-10: everyone with stored time plus everyone
// currently in a session, ranked by as-of-now totals.
func (t *Tracker) TopGlobal(guildID string, names NameResolver) []Entry {
	t.mu.Lock()
	candidates := make(map[string]int64)
	for userID := range t.global {
		candidates[userID] = t.globalTotalLocked(userID)
	}
	for userID := range t.sessions {
		candidates[userID] = t.globalTotalLocked(userID)
	}
	t.mu.Unlock()

	return rank(candidates, guildID, names)
}

// TopSubject builds the top-10 for one subject; open sessions count only when
// their subject matches.
func (t *Tracker) TopSubject(guildID, subjectKey string, names NameResolver) []Entry {
	t.mu.Lock()
	candidates := make(map[string]int64)
	for userID := range t.subjects[subjectKey] {
		candidates[userID] = t.subjectTotalLocked(userID, subjectKey)
	}
	for userID, session := range t.sessions {
		if session.Subject == subjectKey {
			candidates[userID] = t.subjectTotalLocked(userID, subjectKey)
		}
	}
	t.mu.Unlock()

	return rank(candidates, guildID, names)
}

func rank(candidates map[string]int64, guildID string, names NameResolver) []Entry {
	entries := make([]Entry, 0, len(candidates))
	for userID, total := range candidates {
		if total <= 0 {
			continue
		}
		entries = append(entries, Entry{UserID: userID, TotalMS: total})
	}

	// Ties keep candidate iteration order; no stronger rule is promised.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalMS > entries[j].TotalMS
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}

	for i := range entries {
		entries[i].Name = resolveName(guildID, entries[i].UserID, names)
	}
	return entries
}

func resolveName(guildID, userID string, names NameResolver) string {
	if names == nil {
		return "<@" + userID + ">"
	}
	name, err := names.DisplayName(guildID, userID)
	if err != nil || name == "" {
		return "<@" + userID + ">"
	}
	return name
}
