package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/coocood/freecache"
	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/config"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
)

const nameTTLSeconds = 600

type byteCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// nameDirectory resolves member display names for the leaderboard, caching
// results so a single ranking does not fetch the same member repeatedly.
type nameDirectory struct {
	session *discordgo.Session
	cache   byteCache
	rec     metrics.Recorder
	log     zerolog.Logger
}

func newNameDirectory(session *discordgo.Session, conf config.CacheConfig, rec metrics.Recorder, log zerolog.Logger) *nameDirectory {
	var cache byteCache = noopCache{}
	if conf.Enabled && conf.SizeMB > 0 {
		cache = &memberCache{cache: freecache.NewCache(conf.SizeMB * 1024 * 1024)}
	}
	return &nameDirectory{
		session: session,
		cache:   cache,
		rec:     rec,
		log:     log.With().Str("component", "names").Logger(),
	}
}

func (d *nameDirectory) DisplayName(guildID, userID string) (string, error) {
	key := guildID + ":" + userID
	if val, ok := d.cache.Get(key); ok {
		d.rec.NameCacheHit()
		return string(val), nil
	}
	d.rec.NameCacheMiss()

	member, err := d.member(guildID, userID)
	if err != nil {
		return "", err
	}

	name := member.Nick
	if name == "" && member.User != nil {
		name = member.User.GlobalName
		if name == "" {
			name = member.User.Username
		}
	}
	if name != "" {
		d.cache.Set(key, []byte(name))
	}
	return name, nil
}

func (d *nameDirectory) member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := d.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	return d.session.GuildMember(guildID, userID)
}

type memberCache struct {
	cache *freecache.Cache
}

func (c *memberCache) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *memberCache) Set(key string, value []byte) {
	_ = c.cache.Set([]byte(key), value, nameTTLSeconds)
}

type noopCache struct{}

func (noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (noopCache) Set(_ string, _ []byte)      {}
