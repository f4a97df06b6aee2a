package monitor

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind names one event category. The names double as store labels in metrics
// and as the enabled-kind switch values in configuration.
type Kind string

const (
	KindDanmaku   Kind = "danmaku"
	KindGift      Kind = "gift"
	KindEnter     Kind = "enter"
	KindSuperchat Kind = "superchat"
	KindCommand   Kind = "command"
)

// NewKey returns a presentation key: arrival time plus a random tie-breaker,
// so list rendering stays stable even when two events land in the same
// millisecond.
func NewKey() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// ChatEvent is one accepted chat message.
type ChatEvent struct {
	Key       string `json:"key"`
	UserID    string `json:"uid"`
	Nickname  string `json:"nn"`
	Avatar    string `json:"avatar"`
	Level     int    `json:"level"`
	Text      string `json:"txt"`
	Color     int    `json:"color"`
	FansName  string `json:"fansName"`
	FansLevel int    `json:"fansLevel"`
	Diamond   bool   `json:"diamond"`
	Noble     int    `json:"noble"`
	RoomAdmin bool   `json:"roomAdmin"`
	Super     bool   `json:"super"`
	VIP       bool   `json:"vip"`
}

// GiftEvent covers real gifts plus the membership broadcasts the gateway
// delivers on the gift channel: diamond-fan open/renew, noble open/renew, and
// fan badge upgrades.
type GiftEvent struct {
	Key        string `json:"key"`
	Category   string `json:"category"` // gift, diamond, noble, fans
	Action     string `json:"action"`   // sent, opened, renewed, upgraded
	Name       string `json:"name"`
	Nickname   string `json:"nn"`
	Level      int    `json:"level"`
	GiftID     string `json:"giftId"`
	Count      int    `json:"count"`
	Hits       int    `json:"hits"`
	NobleLevel int    `json:"nobleLevel"`
	FansLevel  int    `json:"fansLevel"`
}

// EntranceEvent is one user entering the room.
type EntranceEvent struct {
	Key      string `json:"key"`
	Nickname string `json:"nn"`
	Avatar   string `json:"avatar"`
	Level    int    `json:"level"`
	Noble    int    `json:"noble"`
}

// SuperchatEvent is a paid highlighted message. Expired is the only field
// mutated after creation, by the periodic sweep.
type SuperchatEvent struct {
	Key         string        `json:"key"`
	UserID      string        `json:"uid"`
	Nickname    string        `json:"nn"`
	Avatar      string        `json:"avatar"`
	Text        string        `json:"txt"`
	Price       float64       `json:"price"`
	Tier        int           `json:"tier"`
	HeaderColor string        `json:"headerColor"`
	BodyColor   string        `json:"bodyColor"`
	Duration    time.Duration `json:"-"`
	DurationSec int           `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
	Expired     bool          `json:"expired"`
	FansName    string        `json:"fansName"`
	FansLevel   int           `json:"fansLevel"`
	Noble       bool          `json:"noble"`
	RoomAdmin   bool          `json:"roomAdmin"`
	Diamond     bool          `json:"diamond"`
}

// CommandEvent is a chat message that matched the command prefix and one of
// the configured command keywords.
type CommandEvent struct {
	Key      string    `json:"key"`
	UserID   string    `json:"uid"`
	Nickname string    `json:"nn"`
	Level    int       `json:"level"`
	Text     string    `json:"txt"`
	Command  string    `json:"command"`
	Argument string    `json:"argument"`
	Time     time.Time `json:"time"`
}
