package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNames resolves a fixed set of users and errors on the rest.
type fakeNames map[string]string

func (f fakeNames) DisplayName(guildID, userID string) (string, error) {
	if name, ok := f[userID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown member %s", userID)
}

func TestTopGlobal_OrderAndNames(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Global["a"] = 7200000
	f.store.snapshot.Global["b"] = 3600000
	f.tracker.Restore()

	entries := f.tracker.TopGlobal("g1", fakeNames{"a": "Alice", "b": "Bruno"})
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{UserID: "a", Name: "Alice", TotalMS: 7200000}, entries[0])
	assert.Equal(t, Entry{UserID: "b", Name: "Bruno", TotalMS: 3600000}, entries[1])
}

func TestTopGlobal_IncludesOpenSession(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Global["a"] = 7200000
	f.store.snapshot.Global["b"] = 3600000
	f.tracker.Restore()

	// "a" sits in an unmapped channel for 30 minutes; it still counts
	// toward the global board.
	f.tracker.Apply(enter("a", channel("c9", "AFK")))
	f.advance(30 * time.Minute)

	entries := f.tracker.TopGlobal("g1", nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, int64(9000000), entries[0].TotalMS)
}

func TestTopGlobal_SessionOnlyUserAppears(t *testing.T) {
	f := newFixture(t)

	f.tracker.Apply(enter("fresh", channel("c1", "Matemática")))
	f.advance(5 * time.Minute)

	entries := f.tracker.TopGlobal("g1", nil)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].UserID)
	assert.Equal(t, int64(5*60*1000), entries[0].TotalMS)
}

func TestTopGlobal_DropsNonPositiveTotals(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Global["zero"] = 0
	f.store.snapshot.Global["real"] = 1000
	f.tracker.Restore()

	entries := f.tracker.TopGlobal("g1", nil)
	require.Len(t, entries, 1)
	assert.Equal(t, "real", entries[0].UserID)
}

func TestTopGlobal_TruncatesToTen(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 15; i++ {
		f.store.snapshot.Global[fmt.Sprintf("u%02d", i)] = int64((i + 1) * 1000)
	}
	f.tracker.Restore()

	entries := f.tracker.TopGlobal("g1", nil)
	require.Len(t, entries, 10)
	assert.Equal(t, "u14", entries[0].UserID)
	assert.Equal(t, "u05", entries[9].UserID)
}

func TestTopGlobal_NameFallbackToMention(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Global["gone"] = 1000
	f.tracker.Restore()

	entries := f.tracker.TopGlobal("g1", fakeNames{})
	require.Len(t, entries, 1)
	assert.Equal(t, "<@gone>", entries[0].Name)
}

func TestTopSubject_ScopesSessionsBySubject(t *testing.T) {
	f := newFixture(t)
	f.store.snapshot.Subjects["matematica"] = map[string]int64{"a": 3600000}
	f.tracker.Restore()

	// "b" studies math live, "c" studies Portuguese live.
	f.tracker.Apply(enter("b", channel("c1", "Matemática")))
	f.tracker.Apply(enter("c", channel("c2", "Português")))
	f.advance(10 * time.Minute)

	entries := f.tracker.TopSubject("g1", "matematica", nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, "b", entries[1].UserID)
	assert.Equal(t, int64(10*60*1000), entries[1].TotalMS)
}

func TestTopSubject_EmptyIsValid(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.tracker.TopSubject("g1", "ciencias", nil))
}
