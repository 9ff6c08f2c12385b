package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
)

// memStore records checkpoints in memory.
type memStore struct {
	snapshot models.Snapshot
	saves    []models.Snapshot
	loadErr  error
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{snapshot: models.NewSnapshot()}
}

func (m *memStore) Load() (models.Snapshot, error) {
	if m.loadErr != nil {
		return models.Snapshot{}, m.loadErr
	}
	return m.snapshot, nil
}

func (m *memStore) Save(snapshot models.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, snapshot)
	return nil
}

func (m *memStore) Close() error { return nil }

type fixture struct {
	tracker *Tracker
	store   *memStore
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	tr := New(store, subject.NewCatalog(subject.Defaults()), metrics.Noop{}, zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return &fixture{tracker: tr, store: store, clock: &now}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func channel(id, name string) *models.ChannelRef {
	return &models.ChannelRef{ID: id, Name: name}
}

func enter(userID string, next *models.ChannelRef) models.VoiceTransition {
	return models.VoiceTransition{GuildID: "g1", UserID: userID, Next: next}
}

func leave(userID string, prev *models.ChannelRef) models.VoiceTransition {
	return models.VoiceTransition{GuildID: "g1", UserID: userID, Prev: prev}
}

func move(userID string, prev, next *models.ChannelRef) models.VoiceTransition {
	return models.VoiceTransition{GuildID: "g1", UserID: userID, Prev: prev, Next: next}
}

func TestApply_EnterAndLeave(t *testing.T) {
	f := newFixture(t)
	mat := channel("c1", "Estudo de Matemática")

	closed := f.tracker.Apply(enter("u1", mat))
	assert.False(t, closed)

	f.advance(30 * time.Minute)
	closed = f.tracker.Apply(leave("u1", mat))
	assert.True(t, closed)

	assert.Equal(t, int64(30*60*1000), f.tracker.GlobalTotal("u1"))
	assert.Equal(t, int64(30*60*1000), f.tracker.SubjectTotal("u1", "matematica"))
	require.Len(t, f.store.saves, 1)
}

func TestApply_SwitchClosesThenOpens(t *testing.T) {
	f := newFixture(t)
	a := channel("c1", "Sala de Matemática")
	b := channel("c2", "Sala de Português")

	f.tracker.Apply(enter("u1", a))
	f.advance(10 * time.Minute)

	closed := f.tracker.Apply(move("u1", a, b))
	assert.True(t, closed)
	f.advance(20 * time.Minute)
	f.tracker.Apply(leave("u1", b))

	assert.Equal(t, int64(10*60*1000), f.tracker.SubjectTotal("u1", "matematica"))
	assert.Equal(t, int64(20*60*1000), f.tracker.SubjectTotal("u1", "portugues"))
	assert.Equal(t, int64(30*60*1000), f.tracker.GlobalTotal("u1"))

	// One checkpoint per close: the switch and the final leave.
	assert.Len(t, f.store.saves, 2)
}

func TestApply_UnmappedChannelCountsGlobalOnly(t *testing.T) {
	f := newFixture(t)
	afk := channel("c9", "AFK")

	f.tracker.Apply(enter("u1", afk))
	f.advance(time.Hour)
	f.tracker.Apply(leave("u1", afk))

	assert.Equal(t, int64(3600000), f.tracker.GlobalTotal("u1"))
	for _, s := range subject.Defaults() {
		assert.Zero(t, f.tracker.SubjectTotal("u1", s.Key))
	}
}

func TestApply_NoOpTransitions(t *testing.T) {
	f := newFixture(t)
	c := channel("c1", "Matemática")

	// Same channel on both sides (e.g. mute toggle) and both absent.
	f.tracker.Apply(enter("u1", c))
	f.advance(time.Minute)
	assert.False(t, f.tracker.Apply(move("u1", c, c)))
	assert.False(t, f.tracker.Apply(models.VoiceTransition{GuildID: "g1", UserID: "u2"}))

	// The open session survived the no-op.
	f.advance(time.Minute)
	f.tracker.Apply(leave("u1", c))
	assert.Equal(t, int64(2*60*1000), f.tracker.GlobalTotal("u1"))

	// Only the real close checkpointed.
	assert.Len(t, f.store.saves, 1)
}

func TestApply_LeaveWithoutSession(t *testing.T) {
	f := newFixture(t)

	closed := f.tracker.Apply(leave("u1", channel("c1", "Matemática")))
	assert.False(t, closed)
	assert.Zero(t, f.tracker.GlobalTotal("u1"))
	assert.Empty(t, f.store.saves)
}

func TestQueries_AsOfNowIncludeOpenSession(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Global["u1"] = 3600000
	f.store.snapshot.Subjects["matematica"] = map[string]int64{"u1": 3600000}
	f.tracker.Restore()

	f.tracker.Apply(enter("u1", channel("c1", "Matemática")))
	f.advance(30 * time.Minute)

	assert.Equal(t, int64(3600000+1800000), f.tracker.GlobalTotal("u1"))
	assert.Equal(t, int64(3600000+1800000), f.tracker.SubjectTotal("u1", "matematica"))
	assert.Zero(t, f.tracker.SubjectTotal("u1", "portugues"))
}

func TestInvariant_GlobalAtLeastEverySubject(t *testing.T) {
	f := newFixture(t)
	steps := []struct {
		ch  *models.ChannelRef
		dur time.Duration
	}{
		{channel("c1", "Matemática"), 10 * time.Minute},
		{channel("c2", "AFK"), 5 * time.Minute},
		{channel("c3", "Sala de Filosofia/História 2"), 25 * time.Minute},
	}
	for _, step := range steps {
		f.tracker.Apply(enter("u1", step.ch))
		f.advance(step.dur)
		f.tracker.Apply(leave("u1", step.ch))

		global := f.tracker.GlobalTotal("u1")
		for _, s := range subject.Defaults() {
			assert.GreaterOrEqual(t, global, f.tracker.SubjectTotal("u1", s.Key))
		}
	}
}

func TestCheckpoint_SaveFailureKeepsTotals(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = fmt.Errorf("disk full")
	c := channel("c1", "Matemática")

	f.tracker.Apply(enter("u1", c))
	f.advance(time.Minute)
	f.tracker.Apply(leave("u1", c))

	assert.Equal(t, int64(60000), f.tracker.GlobalTotal("u1"))
}

func TestRestore_LoadFailureStartsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.loadErr = fmt.Errorf("corrupt")

	f.tracker.Restore()
	assert.Zero(t, f.tracker.GlobalTotal("u1"))

	// Engine still functional afterwards.
	c := channel("c1", "Matemática")
	f.tracker.Apply(enter("u1", c))
	f.advance(time.Minute)
	f.tracker.Apply(leave("u1", c))
	assert.Equal(t, int64(60000), f.tracker.GlobalTotal("u1"))
}

func TestSnapshot_DeepCopy(t *testing.T) {
	f := newFixture(t)
	c := channel("c1", "Matemática")
	f.tracker.Apply(enter("u1", c))
	f.advance(time.Minute)
	f.tracker.Apply(leave("u1", c))

	snapshot := f.tracker.Snapshot()
	snapshot.Global["u1"] = 0
	snapshot.Subjects["matematica"]["u1"] = 0

	assert.Equal(t, int64(60000), f.tracker.GlobalTotal("u1"))
	assert.Equal(t, int64(60000), f.tracker.SubjectTotal("u1", "matematica"))
}
