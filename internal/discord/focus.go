package discord

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

// focusTrack is one queued focus-music item.
type focusTrack struct {
	title         string
	url           string
	duration      time.Duration
	requester     string
	textChannelID string
}

type focusQueue struct {
	tracks  []focusTrack
	playing bool
	stopped bool
	voice   *discordgo.VoiceConnection
}

// focusPlayer streams study music into the voice channel being used. It is
// fully decoupled from accounting: nothing here touches the totals.
type focusPlayer struct {
	mu     sync.Mutex
	yt     youtube.Client
	queues map[string]*focusQueue
	log    zerolog.Logger
}

func newFocusPlayer(log zerolog.Logger) *focusPlayer {
	return &focusPlayer{
		queues: make(map[string]*focusQueue),
		log:    log.With().Str("component", "focus").Logger(),
	}
}

var youtubeURLPattern = regexp.MustCompile(`^https?://((www\.)?youtube\.com/watch\?v=|youtu\.be/)`)

// handleFoco queues a YouTube track and starts playback in the caller's
// voice channel.
func (b *Bot) handleFoco(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		b.replyText(s, m, "🎧 Formato: `!foco <link do YouTube>` para tocar música de foco. Use `!parar` e `!fila`.")
		return
	}

	voiceState, err := s.State.VoiceState(m.GuildID, m.Author.ID)
	if err != nil || voiceState == nil || voiceState.ChannelID == "" {
		b.replyText(s, m, "❌ Entre em um canal de voz primeiro!")
		return
	}

	url := args[0]
	if !youtubeURLPattern.MatchString(url) {
		b.replyText(s, m, "❓ Só aceito links do YouTube por enquanto.")
		return
	}

	track, err := b.player.resolve(url)
	if err != nil {
		b.log.Warn().Err(err).Str("url", url).Msg("track lookup failed")
		b.replyText(s, m, "❌ Não consegui obter essa música: "+err.Error())
		return
	}
	track.requester = m.Author.Username
	track.textChannelID = m.ChannelID

	b.player.enqueue(m.GuildID, track)
	b.replyEmbed(s, m, &discordgo.MessageEmbed{
		Title: "🎧 Adicionada à fila de foco",
		Color: colorTempo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Título", Value: track.title, Inline: true},
			{Name: "Duração", Value: track.duration.String(), Inline: true},
			{Name: "Pedida por", Value: track.requester, Inline: true},
		},
	})

	if err := b.player.ensurePlaying(s, m.GuildID, voiceState.ChannelID); err != nil {
		b.replyText(s, m, "❌ Não consegui entrar no canal de voz: "+err.Error())
	}
}

func (b *Bot) handleParar(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.player.stop(m.GuildID) {
		b.replyText(s, m, "⏹️ Música de foco parada e fila limpa.")
	} else {
		b.replyText(s, m, "❌ Não há música tocando.")
	}
}

func (b *Bot) handleFila(s *discordgo.Session, m *discordgo.MessageCreate) {
	lines := b.player.queueLines(m.GuildID)
	if len(lines) == 0 {
		b.replyText(s, m, "🎧 Fila de foco vazia.")
		return
	}
	b.replyText(s, m, "🎧 **Fila de foco**\n"+strings.Join(lines, "\n"))
}

// resolve fetches the track metadata from YouTube.
func (p *focusPlayer) resolve(url string) (focusTrack, error) {
	video, err := p.yt.GetVideo(url)
	if err != nil {
		return focusTrack{}, fmt.Errorf("video lookup: %w", err)
	}
	return focusTrack{title: video.Title, url: url, duration: video.Duration}, nil
}

func (p *focusPlayer) enqueue(guildID string, track focusTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queue(guildID)
	q.stopped = false
	q.tracks = append(q.tracks, track)
}

// queue returns the guild queue; callers hold p.mu.
func (p *focusPlayer) queue(guildID string) *focusQueue {
	q, ok := p.queues[guildID]
	if !ok {
		q = &focusQueue{}
		p.queues[guildID] = q
	}
	return q
}

// ensurePlaying joins the voice channel if needed and starts the playback
// loop when idle.
func (p *focusPlayer) ensurePlaying(s *discordgo.Session, guildID, channelID string) error {
	p.mu.Lock()
	q := p.queue(guildID)
	needsJoin := q.voice == nil || !q.voice.Ready
	alreadyPlaying := q.playing
	if !alreadyPlaying {
		q.playing = true
	}
	p.mu.Unlock()

	if needsJoin {
		voice, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			p.mu.Lock()
			q.playing = false
			p.mu.Unlock()
			return fmt.Errorf("voice join: %w", err)
		}
		p.mu.Lock()
		q.voice = voice
		p.mu.Unlock()
	}

	if !alreadyPlaying {
		go p.run(s, guildID)
	}
	return nil
}

// run plays queued tracks until the queue drains or stop is requested.
func (p *focusPlayer) run(s *discordgo.Session, guildID string) {
	for {
		p.mu.Lock()
		q := p.queue(guildID)
		if q.stopped || len(q.tracks) == 0 {
			q.playing = false
			voice := q.voice
			q.voice = nil
			q.tracks = nil
			p.mu.Unlock()
			if voice != nil {
				voice.Disconnect()
			}
			return
		}
		track := q.tracks[0]
		q.tracks = q.tracks[1:]
		voice := q.voice
		p.mu.Unlock()

		s.ChannelMessageSendEmbed(track.textChannelID, &discordgo.MessageEmbed{
			Title: "🎧 Tocando agora",
			Color: colorTempo,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Título", Value: track.title, Inline: true},
				{Name: "Duração", Value: track.duration.String(), Inline: true},
				{Name: "Pedida por", Value: track.requester, Inline: true},
			},
		})

		if err := p.stream(voice, track.url); err != nil {
			p.log.Warn().Err(err).Str("title", track.title).Msg("playback failed")
			s.ChannelMessageSend(track.textChannelID, fmt.Sprintf("❌ Falha ao tocar **%s**: %v", track.title, err))
		}
	}
}

// stop clears the guild queue and reports whether anything was playing.
func (p *focusPlayer) stop(guildID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.queues[guildID]
	if !ok || (!q.playing && len(q.tracks) == 0) {
		return false
	}
	q.stopped = true
	q.tracks = nil
	if q.voice != nil {
		q.voice.Disconnect()
		q.voice = nil
	}
	return true
}

// StopAll disconnects every guild on shutdown.
func (p *focusPlayer) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range p.queues {
		q.stopped = true
		q.tracks = nil
		if q.voice != nil {
			q.voice.Disconnect()
			q.voice = nil
		}
	}
}

func (p *focusPlayer) queueLines(guildID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.queues[guildID]
	if !ok {
		return nil
	}
	lines := make([]string, 0, len(q.tracks))
	for i, track := range q.tracks {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, track.title, track.duration))
	}
	return lines
}

const (
	sampleRate   = 48000
	channels     = 2
	frameSamples = 960 // 20ms at 48kHz
	maxOpusFrame = 1920
	sendTimeout  = 5 * time.Second
)

// stream decodes the track with ffmpeg into raw PCM and pushes opus frames
// into the voice connection.
func (p *focusPlayer) stream(vc *discordgo.VoiceConnection, url string) error {
	if vc == nil || !vc.Ready {
		return fmt.Errorf("voice connection not ready")
	}

	video, err := p.yt.GetVideo(url)
	if err != nil {
		return fmt.Errorf("video lookup: %w", err)
	}
	format := pickAudioFormat(video)
	if format == nil {
		return fmt.Errorf("no audio format available")
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", format.URL,
		"-f", "s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channels),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	defer cmd.Wait()
	defer cmd.Process.Kill()

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}

	vc.Speaking(true)
	defer vc.Speaking(false)

	pcmBuf := make([]byte, frameSamples*channels*2)
	pcmInt16 := make([]int16, frameSamples*channels)

	for {
		if _, err := io.ReadFull(stdout, pcmBuf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("read pcm: %w", err)
		}
		if err := binary.Read(bytes.NewReader(pcmBuf), binary.LittleEndian, pcmInt16); err != nil {
			return fmt.Errorf("decode pcm: %w", err)
		}
		frame, err := encoder.Encode(pcmInt16, frameSamples, maxOpusFrame)
		if err != nil {
			return fmt.Errorf("encode opus: %w", err)
		}
		select {
		case vc.OpusSend <- frame:
		case <-time.After(sendTimeout):
			return fmt.Errorf("timeout sending audio frame")
		}
	}
}

func pickAudioFormat(video *youtube.Video) *youtube.Format {
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil
	}
	for i, f := range formats {
		if f.ItagNo == 251 || strings.Contains(f.MimeType, "audio/webm") {
			return &formats[i]
		}
	}
	for i, f := range formats {
		if f.ItagNo == 140 || strings.Contains(f.MimeType, "audio/mp4") {
			return &formats[i]
		}
	}
	return &formats[0]
}
