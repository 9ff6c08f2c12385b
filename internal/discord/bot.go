// Package discord is the gateway-facing shell: it converts raw discordgo
// events into typed records for the tracker and renders command replies.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/config"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/ranks"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/tracker"
	"github.com/tompeelrick-wq/Discord-bot-estudo/pkg/utils"
)

// Bot wires the Discord session to the accounting engine.
type Bot struct {
	session *discordgo.Session
	conf    *config.Config
	catalog *subject.Catalog
	tracker *tracker.Tracker
	ladder  *ranks.Ladder
	syncer  *ranks.Syncer
	names   *nameDirectory
	player  *focusPlayer
	log     zerolog.Logger
}

func New(conf *config.Config, catalog *subject.Catalog, tr *tracker.Tracker, ladder *ranks.Ladder, rec metrics.Recorder, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + conf.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	bot := &Bot{
		session: session,
		conf:    conf,
		catalog: catalog,
		tracker: tr,
		ladder:  ladder,
		syncer:  ranks.NewSyncer(&sessionGateway{session: session}, ladder, rec, log),
		names:   newNameDirectory(session, conf.Cache, rec, log),
		player:  newFocusPlayer(log),
		log:     log.With().Str("component", "bot").Logger(),
	}

	session.AddHandler(bot.ready)
	session.AddHandler(bot.disconnect)
	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.guildMemberAdd)
	session.AddHandler(bot.messageCreate)

	return bot, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	b.player.StopAll()
	return b.session.Close()
}

func (b *Bot) ready(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Msg("gateway connected")
}

// disconnect is log-only; discordgo reconnects on its own and open sessions
// stay open across the gap.
func (b *Bot) disconnect(s *discordgo.Session, d *discordgo.Disconnect) {
	b.log.Warn().Msg("gateway disconnected")
}

// voiceStateUpdate feeds the accounting engine. The transition is folded into
// the totals before any network call; role re-evaluation then runs detached
// so a slow or failing API call never blocks other events.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.GuildID == "" {
		return
	}

	transition := models.VoiceTransition{GuildID: vs.GuildID, UserID: vs.UserID}
	if vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID != "" {
		transition.Prev = b.channelRef(s, vs.BeforeUpdate.ChannelID)
	}
	if vs.ChannelID != "" {
		transition.Next = b.channelRef(s, vs.ChannelID)
	}

	if closed := b.tracker.Apply(transition); closed {
		hours := utils.Hours(b.tracker.GlobalTotal(vs.UserID))
		go b.syncer.Sync(vs.GuildID, vs.UserID, hours)
	}
}

func (b *Bot) channelRef(s *discordgo.Session, channelID string) *models.ChannelRef {
	ref := &models.ChannelRef{ID: channelID}
	if ch, err := s.State.Channel(channelID); err == nil {
		ref.Name = ch.Name
	} else if ch, err := s.Channel(channelID); err == nil {
		ref.Name = ch.Name
	} else {
		b.log.Warn().Err(err).Str("channel", channelID).Msg("channel lookup failed, session will carry no subject")
	}
	return ref
}

// guildMemberAdd hands the base tier to new members.
func (b *Bot) guildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	b.syncer.GrantBase(m.GuildID, m.Member)
}

// sessionGateway adapts discordgo to the slice of the API the role syncer
// uses, preferring the state cache over REST.
type sessionGateway struct {
	session *discordgo.Session
}

func (g *sessionGateway) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := g.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	return g.session.GuildMember(guildID, userID)
}

func (g *sessionGateway) AddRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (g *sessionGateway) RemoveRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleRemove(guildID, userID, roleID)
}
