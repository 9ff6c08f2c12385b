package ranks

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
)

// Gateway is the slice of the Discord API the syncer needs. The discord
// package provides the real adapter; tests provide a fake.
type Gateway interface {
	Member(guildID, userID string) (*discordgo.Member, error)
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
}

// Syncer applies tier changes to members. Every external call is best-effort:
// a failed mutation is logged and the next session close re-evaluates anyway.
type Syncer struct {
	gateway Gateway
	ladder  *Ladder
	rec     metrics.Recorder
	log     zerolog.Logger
}

func NewSyncer(gateway Gateway, ladder *Ladder, rec metrics.Recorder, log zerolog.Logger) *Syncer {
	return &Syncer{
		gateway: gateway,
		ladder:  ladder,
		rec:     rec,
		log:     log.With().Str("component", "ranksync").Logger(),
	}
}

// Sync moves the member onto the tier their hours earn. Holding the target
// role already is a no-op, so repeated evaluation costs no API calls.
func (s *Syncer) Sync(guildID, userID string, hours float64) {
	member, err := s.gateway.Member(guildID, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("member fetch failed, skipping role sync")
		return
	}

	target := s.ladder.Current(hours)
	if hasRole(member, target.RoleID) {
		return
	}

	for _, roleID := range s.ladder.RoleIDs() {
		if roleID == target.RoleID || !hasRole(member, roleID) {
			continue
		}
		if err := s.gateway.RemoveRole(guildID, userID, roleID); err != nil {
			s.log.Warn().Err(err).Str("user", userID).Str("role", roleID).Msg("role removal failed")
		}
	}

	if err := s.gateway.AddRole(guildID, userID, target.RoleID); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Str("role", target.RoleID).Msg("role grant failed")
		return
	}

	s.rec.RoleSynced()
	s.log.Info().Str("user", userID).Str("tier", target.Name).Float64("hours", hours).Msg("tier updated")
}

// GrantBase gives a freshly joined member the base tier if they lack it.
func (s *Syncer) GrantBase(guildID string, member *discordgo.Member) {
	base := s.ladder.Base()
	if base.RoleID == "" || hasRole(member, base.RoleID) {
		return
	}
	if err := s.gateway.AddRole(guildID, member.User.ID, base.RoleID); err != nil {
		s.log.Warn().Err(err).Str("user", member.User.ID).Msg("base tier grant failed")
		return
	}
	s.log.Info().Str("user", member.User.ID).Str("tier", base.Name).Msg("base tier granted to new member")
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}
