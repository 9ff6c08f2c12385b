package subject

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Subject is one study category. Aliases are matched case- and
// diacritic-insensitively.
type Subject struct {
	Key     string   `mapstructure:"key"`
	Label   string   `mapstructure:"label"`
	Emoji   string   `mapstructure:"emoji"`
	Aliases []string `mapstructure:"aliases"`
}

// Catalog holds the fixed subject set in declared order. It is built once at
// startup and never mutated afterwards.
type Catalog struct {
	subjects []Subject
	byKey    map[string]Subject
}

func NewCatalog(subjects []Subject) *Catalog {
	c := &Catalog{
		subjects: subjects,
		byKey:    make(map[string]Subject, len(subjects)),
	}
	for _, s := range subjects {
		c.byKey[s.Key] = s
	}
	return c
}

// Defaults returns the catalog shipped with the bot. Alias lists should match
// how the server names its voice channels.
func Defaults() []Subject {
	return []Subject{
		{
			Key:     "portugues",
			Label:   "Português",
			Emoji:   "📗",
			Aliases: []string{"portugues", "português", "port", "pt"},
		},
		{
			Key:     "matematica",
			Label:   "Matemática",
			Emoji:   "📘",
			Aliases: []string{"matematica", "matemática", "mat"},
		},
		{
			Key:     "filosofia_historia",
			Label:   "Filosofia/História",
			Emoji:   "📙",
			Aliases: []string{"filosofia", "historia", "história", "filosofia/historia", "filosofia/história"},
		},
		{
			Key:     "ciencias",
			Label:   "Ciências da Natureza",
			Emoji:   "📒",
			Aliases: []string{"ciencias da natureza", "ciências da natureza", "ciencias", "ciência", "cn"},
		},
		{
			Key:     "diversos",
			Label:   "Diversos",
			Emoji:   "📚",
			Aliases: []string{"diversos", "geral", "outros"},
		},
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases s and strips combining diacritics so that alias
// comparison ignores accents. Idempotent.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Subjects returns the catalog in declared order.
func (c *Catalog) Subjects() []Subject {
	return c.subjects
}

// Get looks a subject up by key.
func (c *Catalog) Get(key string) (Subject, bool) {
	s, ok := c.byKey[key]
	return s, ok
}

// FromChannelName resolves a voice-channel name to a subject. Channel names
// are free-form and usually contain a subject name as a fragment, so the
// first subject with any alias appearing as a substring wins. Returns false
// for unmapped channels (AFK etc.) and empty names.
func (c *Catalog) FromChannelName(name string) (Subject, bool) {
	if name == "" {
		return Subject{}, false
	}
	n := Normalize(name)
	for _, s := range c.subjects {
		for _, alias := range s.Aliases {
			if strings.Contains(n, Normalize(alias)) {
				return s, true
			}
		}
	}
	return Subject{}, false
}

// FromUserText resolves a user-typed argument to a subject. Unlike channel
// detection this requires an exact alias match, so a typo is reported back
// instead of silently landing on the wrong subject.
func (c *Catalog) FromUserText(text string) (Subject, bool) {
	if text == "" {
		return Subject{}, false
	}
	t := Normalize(text)
	for _, s := range c.subjects {
		for _, alias := range s.Aliases {
			if t == Normalize(alias) {
				return s, true
			}
		}
	}
	return Subject{}, false
}
