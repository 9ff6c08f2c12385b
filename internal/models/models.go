package models

import "time"

// StudySession represents one member's open voice session. Subject is the
// resolved subject key, or empty when the channel maps to no subject (AFK
// rooms and the like, which still count toward the global total).
type StudySession struct {
	Start   time.Time
	Subject string
}

// ChannelRef identifies one side of a voice transition.
type ChannelRef struct {
	ID   string
	Name string
}

// VoiceTransition is the typed boundary record built from a raw gateway
// voice-state update before it reaches the tracker. Prev or Next is nil when
// the member was not connected on that side of the transition.
type VoiceTransition struct {
	GuildID string
	UserID  string
	Prev    *ChannelRef
	Next    *ChannelRef
}

// Snapshot holds both totals tables in the persisted document shape. Values
// are accumulated milliseconds. The "materias" key matches files written by
// earlier deployments.
type Snapshot struct {
	Global   map[string]int64            `json:"global"`
	Subjects map[string]map[string]int64 `json:"materias"`
}

// NewSnapshot returns an empty snapshot with both tables allocated.
func NewSnapshot() Snapshot {
	return Snapshot{
		Global:   make(map[string]int64),
		Subjects: make(map[string]map[string]int64),
	}
}

// Tier is one rank in the study ladder.
type Tier struct {
	Name     string  `mapstructure:"name"`
	RoleID   string  `mapstructure:"roleId"`
	MinHours float64 `mapstructure:"minHours"`
}
