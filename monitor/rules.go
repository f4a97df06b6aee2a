package monitor

import (
	"strings"
	"time"
)

// Options is the immutable configuration snapshot one Monitor runs with. The
// core never mutates it; missing or partial rule fields fail open.
type Options struct {
	Room      string
	Kinds     []Kind
	Threshold int

	DedupWindow time.Duration

	Chat      ChatRules
	Entrance  EntranceRules
	Gift      GiftRules
	Superchat SuperchatRules
	Command   CommandRules
}

// ChatRules are the ban rules applied to chat messages.
type ChatRules struct {
	BanLevel     int
	BanKeywords  []string
	BanNicknames []string
	FilterRepeat bool
}

// EntranceRules are the ban rules applied to entrance messages.
type EntranceRules struct {
	BanLevel int
}

// GiftRules are the ban rules applied to gift messages. MinPrice is in whole
// currency units; the catalog reports unit prices in cents.
type GiftRules struct {
	MinPrice    float64
	BanKeywords []string
	MinFanLevel int
}

// Tier binds a minimum price to a background color pair. Tables are ordered
// highest MinPrice first; color selection takes the first tier the price
// reaches.
type Tier struct {
	MinPrice    float64 `json:"minPrice"`
	HeaderColor string  `json:"headerColor"`
	BodyColor   string  `json:"bodyColor"`
}

// SuperchatRules configure the keyword-unlock path and the price tier table.
type SuperchatRules struct {
	Keyword         string
	Tiers           []Tier
	ContributionTTL time.Duration
}

// CommandRules configure command extraction from accepted chat messages.
type CommandRules struct {
	Prefix   string
	Keywords []string
}

// DefaultTiers is the stock superchat palette.
func DefaultTiers() []Tier {
	return []Tier{
		{MinPrice: 1000, HeaderColor: "rgb(208,0,0)", BodyColor: "rgb(230,33,23)"},
		{MinPrice: 500, HeaderColor: "rgb(194,24,91)", BodyColor: "rgb(233,30,99)"},
		{MinPrice: 100, HeaderColor: "rgb(230,81,0)", BodyColor: "rgb(245,124,0)"},
		{MinPrice: 50, HeaderColor: "rgb(0,191,165)", BodyColor: "rgb(29,233,182)"},
		{MinPrice: 10, HeaderColor: "rgb(21,101,192)", BodyColor: "rgb(30,136,229)"},
	}
}

// DefaultOptions mirrors the stock monitor configuration for a room.
func DefaultOptions(room string) Options {
	return Options{
		Room:        room,
		Kinds:       []Kind{KindDanmaku, KindSuperchat, KindCommand},
		Threshold:   100,
		DedupWindow: time.Minute,
		Gift:        GiftRules{MinFanLevel: 6},
		Superchat: SuperchatRules{
			Keyword:         "#sc",
			Tiers:           DefaultTiers(),
			ContributionTTL: 10 * time.Minute,
		},
		Command: CommandRules{
			Prefix:   "#",
			Keywords: []string{"点歌", "转盘"},
		},
	}
}

// Enabled reports whether a kind is switched on.
func (o Options) Enabled(kind Kind) bool {
	for _, k := range o.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// lowestTierMinPrice returns the smallest configured tier threshold, the bar a
// gift's total value must clear to create a Contribution. ok is false when no
// tier table is configured, which disables the keyword-unlock path.
func (o Options) lowestTierMinPrice() (float64, bool) {
	tiers := o.Superchat.Tiers
	if len(tiers) == 0 {
		return 0, false
	}
	return tiers[len(tiers)-1].MinPrice, true
}

// containsAny reports whether text contains any of the listed substrings.
// Empty entries never match.
func containsAny(text string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// SplitKeywords turns a space-separated ban list into its entries.
func SplitKeywords(s string) []string {
	return strings.Fields(strings.TrimSpace(s))
}
