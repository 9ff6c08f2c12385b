package ranks

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
)

func testLadder(t *testing.T) *Ladder {
	t.Helper()
	ladder, err := NewLadder(Defaults())
	require.NoError(t, err)
	return ladder
}

func TestNewLadder_Validation(t *testing.T) {
	_, err := NewLadder(nil)
	assert.Error(t, err)

	_, err = NewLadder([]models.Tier{{Name: "a", MinHours: 10}})
	assert.Error(t, err)

	_, err = NewLadder([]models.Tier{
		{Name: "a", MinHours: 0},
		{Name: "b", MinHours: 100},
		{Name: "c", MinHours: 100},
	})
	assert.Error(t, err)
}

func TestLadder_Current(t *testing.T) {
	ladder := testLadder(t)

	assert.Equal(t, "Burro", ladder.Current(0).Name)
	assert.Equal(t, "Burro", ladder.Current(99.99).Name)
	assert.Equal(t, "Mediocre", ladder.Current(499.99).Name)
	assert.Equal(t, "Aprendiz", ladder.Current(500).Name)
	assert.Equal(t, "Mago Implacavel", ladder.Current(10001).Name)
}

func TestLadder_Next(t *testing.T) {
	ladder := testLadder(t)

	next, ok := ladder.Next(ladder.Current(0))
	require.True(t, ok)
	assert.Equal(t, "Mediocre", next.Name)

	_, ok = ladder.Next(ladder.Current(10001))
	assert.False(t, ok)
}

// fakeGateway records role mutations and serves a mutable member.
type fakeGateway struct {
	member      *discordgo.Member
	memberErr   error
	addCalls    []string
	removeCalls []string
}

func (f *fakeGateway) Member(guildID, userID string) (*discordgo.Member, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.member, nil
}

func (f *fakeGateway) AddRole(guildID, userID, roleID string) error {
	f.addCalls = append(f.addCalls, roleID)
	f.member.Roles = append(f.member.Roles, roleID)
	return nil
}

func (f *fakeGateway) RemoveRole(guildID, userID, roleID string) error {
	f.removeCalls = append(f.removeCalls, roleID)
	kept := f.member.Roles[:0]
	for _, id := range f.member.Roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	f.member.Roles = kept
	return nil
}

func newFakeGateway(roles ...string) *fakeGateway {
	return &fakeGateway{member: &discordgo.Member{
		User:  &discordgo.User{ID: "u1"},
		Roles: roles,
	}}
}

func TestSyncer_PromotesAndStripsOldTiers(t *testing.T) {
	ladder := testLadder(t)
	gw := newFakeGateway(ladder.Base().RoleID, "unrelated-role")
	s := NewSyncer(gw, ladder, metrics.Noop{}, zerolog.Nop())

	s.Sync("g1", "u1", 150)

	require.Len(t, gw.addCalls, 1)
	assert.Equal(t, ladder.Current(150).RoleID, gw.addCalls[0])
	assert.Equal(t, []string{ladder.Base().RoleID}, gw.removeCalls)
	assert.Contains(t, gw.member.Roles, "unrelated-role")
}

func TestSyncer_Idempotent(t *testing.T) {
	ladder := testLadder(t)
	gw := newFakeGateway(ladder.Base().RoleID)
	s := NewSyncer(gw, ladder, metrics.Noop{}, zerolog.Nop())

	s.Sync("g1", "u1", 150)
	mutations := len(gw.addCalls) + len(gw.removeCalls)

	s.Sync("g1", "u1", 150)
	assert.Equal(t, mutations, len(gw.addCalls)+len(gw.removeCalls))
}

func TestSyncer_MemberFetchFailureIsSwallowed(t *testing.T) {
	ladder := testLadder(t)
	gw := newFakeGateway()
	gw.memberErr = fmt.Errorf("member left")
	s := NewSyncer(gw, ladder, metrics.Noop{}, zerolog.Nop())

	s.Sync("g1", "u1", 150)
	assert.Empty(t, gw.addCalls)
	assert.Empty(t, gw.removeCalls)
}

func TestSyncer_GrantBase(t *testing.T) {
	ladder := testLadder(t)
	gw := newFakeGateway()
	s := NewSyncer(gw, ladder, metrics.Noop{}, zerolog.Nop())

	s.GrantBase("g1", gw.member)
	assert.Equal(t, []string{ladder.Base().RoleID}, gw.addCalls)

	// Already held: no further call.
	s.GrantBase("g1", gw.member)
	assert.Len(t, gw.addCalls, 1)
}
