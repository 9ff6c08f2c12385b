// Package tracker is the voice-session accounting engine. It owns the open
// session map and both totals tables for the process lifetime; the store is
// only touched at startup and on session-close checkpoints.
package tracker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/storage"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
)

type Tracker struct {
	mu       sync.Mutex
	store    storage.Store
	catalog  *subject.Catalog
	rec      metrics.Recorder
	log      zerolog.Logger
	now      func() time.Time
	sessions map[string]models.StudySession
	global   map[string]int64
	subjects map[string]map[string]int64
}

func New(store storage.Store, catalog *subject.Catalog, rec metrics.Recorder, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		catalog:  catalog,
		rec:      rec,
		log:      log.With().Str("component", "tracker").Logger(),
		now:      time.Now,
		sessions: make(map[string]models.StudySession),
		global:   make(map[string]int64),
		subjects: make(map[string]map[string]int64),
	}
}

// Restore loads persisted totals. A missing or unreadable file is not fatal:
// the engine starts from empty tables and the condition is logged.
func (t *Tracker) Restore() {
	snapshot, err := t.store.Load()
	if err != nil {
		t.log.Warn().Err(err).Msg("could not load persisted totals, starting empty")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.global = snapshot.Global
	t.subjects = snapshot.Subjects
	t.log.Info().Int("users", len(t.global)).Int("subjects", len(t.subjects)).Msg("totals restored")
}

// Apply runs the session state machine for one voice transition and reports
// whether a session was closed, so the caller can re-evaluate the member's
// tier. A channel switch closes the old session completely, checkpoint
// included, before the new one opens.
func (t *Tracker) Apply(tr models.VoiceTransition) (closed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case tr.Prev == nil && tr.Next != nil:
		t.openLocked(tr.UserID, tr.Next)
	case tr.Prev != nil && tr.Next == nil:
		closed = t.closeLocked(tr.UserID)
	case tr.Prev != nil && tr.Next != nil && tr.Prev.ID != tr.Next.ID:
		closed = t.closeLocked(tr.UserID)
		t.openLocked(tr.UserID, tr.Next)
	}
	return closed
}

func (t *Tracker) openLocked(userID string, channel *models.ChannelRef) {
	session := models.StudySession{Start: t.now()}
	label := "none"
	if s, ok := t.catalog.FromChannelName(channel.Name); ok {
		session.Subject = s.Key
		label = s.Label
	}
	t.sessions[userID] = session
	t.rec.SessionOpened()
	t.log.Info().Str("user", userID).Str("channel", channel.Name).Str("subject", label).Msg("session opened")
}

func (t *Tracker) closeLocked(userID string) bool {
	session, ok := t.sessions[userID]
	if !ok {
		return false
	}

	duration := t.now().Sub(session.Start)
	if duration < 0 {
		duration = 0
	}
	ms := duration.Milliseconds()

	t.global[userID] += ms
	if session.Subject != "" {
		if t.subjects[session.Subject] == nil {
			t.subjects[session.Subject] = make(map[string]int64)
		}
		t.subjects[session.Subject][userID] += ms
	}
	delete(t.sessions, userID)

	t.rec.SessionClosed(duration)
	t.log.Info().Str("user", userID).Str("subject", session.Subject).Dur("duration", duration).Msg("session closed")

	t.checkpointLocked()
	return true
}

// checkpointLocked writes the whole snapshot after a fold. A failed save is
// logged and counted; the in-memory tables stay authoritative.
func (t *Tracker) checkpointLocked() {
	started := time.Now()
	if err := t.store.Save(t.snapshotLocked()); err != nil {
		t.rec.SaveFailed()
		t.log.Error().Err(err).Msg("totals save failed")
		return
	}
	t.rec.SaveSucceeded(time.Since(started))
}

// GlobalTotal returns the member's accumulated milliseconds as of now,
// including the open session if one exists.
func (t *Tracker) GlobalTotal(userID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalTotalLocked(userID)
}

func (t *Tracker) globalTotalLocked(userID string) int64 {
	total := t.global[userID]
	if session, ok := t.sessions[userID]; ok {
		total += t.now().Sub(session.Start).Milliseconds()
	}
	return total
}

// SubjectTotal returns the member's accumulated milliseconds for one subject
// as of now; the open session counts only when its subject matches.
func (t *Tracker) SubjectTotal(userID, subjectKey string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subjectTotalLocked(userID, subjectKey)
}

func (t *Tracker) subjectTotalLocked(userID, subjectKey string) int64 {
	var total int64
	if users, ok := t.subjects[subjectKey]; ok {
		total = users[userID]
	}
	if session, ok := t.sessions[userID]; ok && session.Subject == subjectKey {
		total += t.now().Sub(session.Start).Milliseconds()
	}
	return total
}

// Snapshot deep-copies both totals tables.
func (t *Tracker) Snapshot() models.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() models.Snapshot {
	snapshot := models.NewSnapshot()
	for userID, ms := range t.global {
		snapshot.Global[userID] = ms
	}
	for subjectKey, users := range t.subjects {
		copied := make(map[string]int64, len(users))
		for userID, ms := range users {
			copied[userID] = ms
		}
		snapshot.Subjects[subjectKey] = copied
	}
	return snapshot
}
