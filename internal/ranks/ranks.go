// Package ranks resolves accumulated study hours to the role ladder and
// keeps members' Discord roles in line with it.
package ranks

import (
	"fmt"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
)

// Ladder is the ordered tier list, ascending by threshold.
type Ladder struct {
	tiers []models.Tier
}

// NewLadder validates the tier list: the first tier must start at zero hours
// so every member always has a current tier, and thresholds must strictly
// increase.
func NewLadder(tiers []models.Tier) (*Ladder, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier ladder is empty")
	}
	if tiers[0].MinHours != 0 {
		return nil, fmt.Errorf("first tier %q must start at 0 hours, got %.2f", tiers[0].Name, tiers[0].MinHours)
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinHours <= tiers[i-1].MinHours {
			return nil, fmt.Errorf("tier %q threshold %.2f must exceed %q threshold %.2f",
				tiers[i].Name, tiers[i].MinHours, tiers[i-1].Name, tiers[i-1].MinHours)
		}
	}
	return &Ladder{tiers: tiers}, nil
}

// Defaults returns the ladder shipped with the bot. Role IDs must be replaced
// with the real role IDs of the target server.
func Defaults() []models.Tier {
	return []models.Tier{
		{Name: "Burro", RoleID: "1442646450067472565", MinHours: 0},
		{Name: "Mediocre", RoleID: "1442646692552900669", MinHours: 100},
		{Name: "Aprendiz", RoleID: "1442646900418547823", MinHours: 500},
		{Name: "Inteligente", RoleID: "1442646946400440433", MinHours: 5000},
		{Name: "Mago Implacavel", RoleID: "1442647104815239218", MinHours: 10000},
	}
}

// Current returns the highest tier whose threshold does not exceed hours.
// The zero-threshold base tier guarantees a result.
func (l *Ladder) Current(hours float64) models.Tier {
	current := l.tiers[0]
	for _, tier := range l.tiers {
		if hours >= tier.MinHours {
			current = tier
		}
	}
	return current
}

// Next returns the tier with the smallest threshold strictly above the given
// tier, or false at the top of the ladder.
func (l *Ladder) Next(current models.Tier) (models.Tier, bool) {
	for _, tier := range l.tiers {
		if tier.MinHours > current.MinHours {
			return tier, true
		}
	}
	return models.Tier{}, false
}

// Base returns the zero-threshold tier granted to every new member.
func (l *Ladder) Base() models.Tier {
	return l.tiers[0]
}

// RoleIDs returns every ladder role ID, used to strip stale tiers.
func (l *Ladder) RoleIDs() []string {
	ids := make([]string, 0, len(l.tiers))
	for _, tier := range l.tiers {
		ids = append(ids, tier.RoleID)
	}
	return ids
}
