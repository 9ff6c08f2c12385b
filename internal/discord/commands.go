package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/tracker"
	"github.com/tompeelrick-wq/Discord-bot-estudo/pkg/utils"
)

const (
	colorTempo = 0x5865f2
	colorRank  = 0xf1c40f
	colorCargo = 0x2ecc71
)

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.conf.Prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(content, b.conf.Prefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "tempo":
		b.handleTempo(s, m, args)
	case "rank", "ranking":
		b.handleRank(s, m, args)
	case "cargo":
		b.handleCargo(s, m)
	case "foco":
		b.handleFoco(s, m, args)
	case "parar":
		b.handleParar(s, m)
	case "fila":
		b.handleFila(s, m)
	}
}

// handleTempo reports the as-of-now total for the caller or a mentioned
// member, optionally filtered to one subject.
func (b *Bot) handleTempo(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	target := m.Author
	if len(m.Mentions) > 0 {
		target = m.Mentions[0]
	}

	// The mention token is not part of the subject text.
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if utils.IsUserMention(arg) {
			continue
		}
		rest = append(rest, arg)
	}

	var subj subject.Subject
	var filtered bool
	if len(rest) > 0 {
		var ok bool
		subj, ok = b.catalog.FromUserText(strings.Join(rest, " "))
		if !ok {
			b.replyText(s, m, "❓ Não reconheci essa matéria. Exemplos: `!tempo matematica`, `!tempo portugues`.")
			return
		}
		filtered = true
	}

	var total int64
	if filtered {
		total = b.tracker.SubjectTotal(target.ID, subj.Key)
	} else {
		total = b.tracker.GlobalTotal(target.ID)
	}

	if total == 0 {
		if target.ID == m.Author.ID {
			b.replyText(s, m, "⏱️ Você ainda não tem tempo registrado nesse filtro.")
		} else {
			b.replyText(s, m, fmt.Sprintf("⏱️ %s ainda não tem tempo registrado nesse filtro.", target.Username))
		}
		return
	}

	embed := &discordgo.MessageEmbed{
		Color: colorTempo,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    target.Username,
			IconURL: target.AvatarURL(""),
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "BotTempoCall – estudo monitorado 😎"},
	}
	if filtered {
		embed.Title = fmt.Sprintf("%s Tempo de estudo em %s", subj.Emoji, subj.Label)
		embed.Description = fmt.Sprintf("**%s** em canais de **%s**.", utils.FormatDuration(total), subj.Label)
	} else {
		embed.Title = "⏱️ Tempo total em call (todas as matérias)"
		embed.Description = fmt.Sprintf("Você já passou **%s** em call.", utils.FormatDuration(total))
	}
	b.replyEmbed(s, m, embed)
}

// handleRank reports the top-10 leaderboard, global or per subject.
func (b *Bot) handleRank(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	var subj subject.Subject
	var filtered bool
	if len(args) > 0 {
		var ok bool
		subj, ok = b.catalog.FromUserText(strings.Join(args, " "))
		if !ok {
			b.replyText(s, m, "❓ Não reconheci essa matéria.\nExemplos: `!rank matematica`, `!rank portugues` ou só `!rank` para geral.")
			return
		}
		filtered = true
	}

	var entries []tracker.Entry
	if filtered {
		entries = b.tracker.TopSubject(m.GuildID, subj.Key, b.names)
	} else {
		entries = b.tracker.TopGlobal(m.GuildID, b.names)
	}

	if len(entries) == 0 {
		b.replyText(s, m, "📊 Ainda não há dados suficientes para montar o ranking.")
		return
	}

	max := entries[0].TotalMS
	var lines []string
	for i, entry := range entries {
		bar := utils.ProgressBar(float64(entry.TotalMS) / float64(max))
		lines = append(lines, fmt.Sprintf("**%d.** %s — `%s`\n%s", i+1, entry.Name, utils.FormatDuration(entry.TotalMS), bar))
	}
	description := strings.Join(lines, "\n\n")

	var sum int64
	for i, entry := range entries {
		sum += entry.TotalMS
		if entry.UserID == m.Author.ID {
			description += fmt.Sprintf("\n\n👤 Sua posição: **%dº** — `%s`", i+1, utils.FormatDuration(entry.TotalMS))
		}
	}

	title := "🏆 Ranking geral de tempo em call"
	if filtered {
		title = fmt.Sprintf("%s Ranking de %s", subj.Emoji, subj.Label)
	}

	b.replyEmbed(s, m, &discordgo.MessageEmbed{
		Color:       colorRank,
		Title:       title,
		Description: description,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Tempo total somado desse ranking: %s", utils.FormatDuration(sum)),
		},
	})
}

// handleCargo reports the caller's tier, total hours and the next tier.
func (b *Bot) handleCargo(s *discordgo.Session, m *discordgo.MessageCreate) {
	totalMS := b.tracker.GlobalTotal(m.Author.ID)
	hours := utils.Hours(totalMS)
	current := b.ladder.Current(hours)

	embed := &discordgo.MessageEmbed{
		Color: colorCargo,
		Title: "🎓 Seu nível de estudo",
		Author: &discordgo.MessageEmbedAuthor{
			Name:    m.Author.Username,
			IconURL: m.Author.AvatarURL(""),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Nível atual", Value: fmt.Sprintf("**%s**", current.Name), Inline: true},
			{Name: "Horas totais de estudo", Value: fmt.Sprintf("**%.2fh**", hours), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Suba de nível estudando mais tempo em call 📚"},
	}

	if next, ok := b.ladder.Next(current); ok {
		remaining := next.MinHours - hours
		if remaining < 0 {
			remaining = 0
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Próximo nível",
			Value: fmt.Sprintf("**%s** em **%.2fh** (%.0fh no total)", next.Name, remaining, next.MinHours),
		})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Próximo nível",
			Value: fmt.Sprintf("Você já está no nível máximo: **%s** 🧙‍♂️", current.Name),
		})
	}

	b.replyEmbed(s, m, embed)
}

func (b *Bot) replyText(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		b.log.Warn().Err(err).Str("channel", m.ChannelID).Msg("reply failed")
	}
}

func (b *Bot) replyEmbed(s *discordgo.Session, m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embed:     embed,
		Reference: m.Reference(),
	})
	if err != nil {
		b.log.Warn().Err(err).Str("channel", m.ChannelID).Msg("embed reply failed")
	}
}
