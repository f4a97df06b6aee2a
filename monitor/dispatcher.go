package monitor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forzenfox/douyu-monitor/gift"
	"github.com/forzenfox/douyu-monitor/stt"
	"github.com/forzenfox/douyu-monitor/telemetry"
)

// GiftLookup resolves a gift id to its catalog entry. Unknown ids make the
// gift filters fail open.
type GiftLookup interface {
	Lookup(id string) (gift.Item, bool)
}

// Monitor owns the full ingestion state for one room: dedup set, pending
// contributions, and the five event stores. Frames are dispatched strictly in
// arrival order by the session's read goroutine; the mutex exists because the
// expiry sweep and HTTP readers run concurrently with it.
type Monitor struct {
	opts    Options
	catalog GiftLookup

	mu           sync.Mutex
	seen         *seenIDs
	contrib      map[string]contribution
	lastChatText string
	hasChat      bool

	Danmaku    *Store[ChatEvent]
	Gifts      *Store[GiftEvent]
	Entries    *Store[EntranceEvent]
	Superchats *Store[SuperchatEvent]
	Commands   *Store[CommandEvent]
}

// New builds a Monitor from an options snapshot. catalog may be nil; every
// gift id then resolves as unknown.
func New(opts Options, catalog GiftLookup) *Monitor {
	if opts.Threshold <= 0 {
		opts.Threshold = 100
	}
	return &Monitor{
		opts:       opts,
		catalog:    catalog,
		seen:       newSeenIDs(opts.DedupWindow),
		contrib:    make(map[string]contribution),
		Danmaku:    NewStore[ChatEvent](KindDanmaku, opts.Threshold),
		Gifts:      NewStore[GiftEvent](KindGift, opts.Threshold),
		Entries:    NewStore[EntranceEvent](KindEnter, opts.Threshold),
		Superchats: NewStore[SuperchatEvent](KindSuperchat, opts.Threshold),
		Commands:   NewStore[CommandEvent](KindCommand, opts.Threshold),
	}
}

// Run drives the 1 Hz lifecycle sweep: superchat expiry plus contribution TTL
// eviction. It returns when ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweepExpiry(now)
			m.mu.Lock()
			m.evictContributions(now)
			m.mu.Unlock()
		}
	}
}

// ContributionCount returns the number of users with a pending contribution.
func (m *Monitor) ContributionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contrib)
}

// HandleFrame decodes and routes one gateway frame. It is the danmu session's
// frame handler and never fails: undecodable or unwanted frames are dropped
// with a counted reason.
func (m *Monitor) HandleFrame(frame string) {
	telemetry.TimeFunc(telemetry.DispatchDuration, func() {
		m.dispatch(frame)
	})
}

func (m *Monitor) dispatch(frame string) {
	rec := stt.UnmarshalRecord(frame)

	// Broadcast wrappers carry the real kind in btype; the outer type is a
	// generic envelope tag (comm_chatmsg, configscreen).
	typ := rec.Str("type")
	if b := rec.Str("btype"); b != "" {
		typ = b
	}
	if typ == "" {
		telemetry.CountDropped("unknown", "untyped")
		return
	}

	now := time.Now()
	id := firstOf(rec, "cid", "vrid", "now")
	if id == "" {
		id = strconv.FormatInt(now.UnixMilli(), 10)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen.Seen(id, now) {
		telemetry.CountDropped(typ, "duplicate")
		return
	}

	switch typ {
	case "chatmsg":
		m.handleChat(rec, now)
	case "dgb":
		m.handleGift(rec, now)
	case "odfbc":
		m.handleDiamond(rec, "opened")
	case "rndfbc":
		m.handleDiamond(rec, "renewed")
	case "anbc":
		m.handleNoble(rec, "opened")
	case "rnewbc":
		m.handleNoble(rec, "renewed")
	case "blab":
		m.handleFanUpgrade(rec, rec.Int("bl"), rec.Str("nn"))
	case "fansupgradebroadcast":
		m.handleFanUpgrade(rec, rec.Int("otherContent"), rec.Str("userName"))
	case "uenter":
		m.handleEntrance(rec)
	case "sc", "superchat", "fansPaper", "professgiftsrc", "voiceDanmu":
		m.handleNativeSuperchat(typ, rec)
	default:
		telemetry.CountDropped(typ, "unroutable")
	}
}

func (m *Monitor) handleChat(rec *stt.Record, now time.Time) {
	if !m.opts.Enabled(KindDanmaku) {
		telemetry.CountDropped(string(KindDanmaku), "disabled")
		return
	}
	if !m.chatAllowed(rec) {
		telemetry.CountDropped(string(KindDanmaku), "filtered")
		return
	}

	txt := rec.Str("txt")
	uid := rec.Str("uid")

	// A keyword-bearing message from a user with a live contribution becomes
	// a superchat instead of a plain chat message.
	if kw := m.opts.Superchat.Keyword; kw != "" && strings.Contains(txt, kw) && m.opts.Enabled(KindSuperchat) {
		if c, ok := m.takeContribution(uid, now); ok {
			sc := m.buildSuperchat(rec, c.Price, txt)
			m.Superchats.Push(sc)
			telemetry.CountAccepted(string(KindSuperchat))
			slog.Debug("superchat unlocked", slog.String("uid", uid), slog.Float64("price", c.Price))
			return
		}
	}

	ev := ChatEvent{
		Key:       keyOf(rec),
		UserID:    uid,
		Nickname:  rec.Str("nn"),
		Avatar:    rec.Str("ic"),
		Level:     rec.Int("level"),
		Text:      txt,
		Color:     rec.Int("col"),
		FansName:  rec.Str("bnn"),
		FansLevel: rec.Int("bl"),
		Diamond:   rec.Int("diaf") != 0,
		Noble:     rec.Int("nl"),
		RoomAdmin: rec.Int("rg") == 4,
		Super:     rec.Int("pg") == 5,
		VIP:       rec.Str("ail") == "453/" || rec.Str("ail") == "454/",
	}
	m.lastChatText = txt
	m.hasChat = true
	m.Danmaku.Push(ev)
	telemetry.CountAccepted(string(KindDanmaku))

	if cmd, ok := m.commandFrom(rec, txt); ok {
		if !m.opts.Enabled(KindCommand) {
			telemetry.CountDropped(string(KindCommand), "disabled")
			return
		}
		m.Commands.Push(cmd)
		telemetry.CountAccepted(string(KindCommand))
	}
}

func (m *Monitor) chatAllowed(rec *stt.Record) bool {
	rules := m.opts.Chat
	if rec.Int("level") <= rules.BanLevel {
		return false
	}
	if containsAny(rec.Str("txt"), rules.BanKeywords) {
		return false
	}
	if containsAny(rec.Str("nn"), rules.BanNicknames) {
		return false
	}
	if rules.FilterRepeat && m.hasChat && rec.Str("txt") == m.lastChatText {
		return false
	}
	return true
}

// commandFrom extracts a command from an accepted chat message: prefix match,
// then the first configured keyword found after the prefix; the remainder is
// the argument.
func (m *Monitor) commandFrom(rec *stt.Record, txt string) (CommandEvent, bool) {
	rules := m.opts.Command
	if rules.Prefix == "" || !strings.HasPrefix(txt, rules.Prefix) {
		return CommandEvent{}, false
	}
	rest := txt[len(rules.Prefix):]
	for _, kw := range rules.Keywords {
		if kw == "" || !strings.Contains(rest, kw) {
			continue
		}
		return CommandEvent{
			Key:      keyOf(rec),
			UserID:   rec.Str("uid"),
			Nickname: rec.Str("nn"),
			Level:    rec.Int("level"),
			Text:     txt,
			Command:  kw,
			Argument: strings.TrimSpace(strings.Replace(rest, kw, "", 1)),
			Time:     time.Now(),
		}, true
	}
	return CommandEvent{}, false
}

func (m *Monitor) handleGift(rec *stt.Record, now time.Time) {
	if !m.opts.Enabled(KindGift) {
		telemetry.CountDropped(string(KindGift), "disabled")
		return
	}
	if !m.giftAllowed(rec) {
		telemetry.CountDropped(string(KindGift), "filtered")
		return
	}

	gfid := rec.Str("gfid")
	name := ""
	var unitPrice int
	if m.catalog != nil {
		if item, ok := m.catalog.Lookup(gfid); ok {
			name = item.Name
			unitPrice = item.Price
		}
	}
	ev := GiftEvent{
		Key:      NewKey(),
		Category: "gift",
		Action:   "sent",
		Name:     name,
		Nickname: rec.Str("nn"),
		Level:    rec.Int("level"),
		GiftID:   gfid,
		Count:    rec.Int("gfcnt"),
		Hits:     rec.Int("hits"),
	}
	m.Gifts.Push(ev)
	telemetry.CountAccepted(string(KindGift))

	// A gift whose total value reaches the lowest superchat tier banks a
	// contribution the user can spend with the superchat keyword.
	if m.opts.Enabled(KindSuperchat) && unitPrice > 0 {
		if minPrice, ok := m.opts.lowestTierMinPrice(); ok {
			total := float64(ev.Count) * float64(unitPrice) / 100
			if total >= minPrice {
				m.putContribution(rec.Str("uid"), total, now)
			}
		}
	}
}

func (m *Monitor) giftAllowed(rec *stt.Record) bool {
	if m.catalog == nil {
		return true
	}
	item, ok := m.catalog.Lookup(rec.Str("gfid"))
	if !ok {
		return true // unknown gifts fail open
	}
	rules := m.opts.Gift
	if item.Price > 0 && float64(item.Price) < rules.MinPrice*100 {
		return false
	}
	if item.Name != "" && containsAny(item.Name, rules.BanKeywords) {
		return false
	}
	return true
}

func (m *Monitor) handleDiamond(rec *stt.Record, action string) {
	if !m.opts.Enabled(KindGift) {
		telemetry.CountDropped(string(KindGift), "disabled")
		return
	}
	m.Gifts.Push(GiftEvent{
		Key:      NewKey(),
		Category: "diamond",
		Action:   action,
		Name:     "diamond fan",
		Nickname: rec.Str("nick"),
		Level:    rec.Int("level"),
		Count:    1,
		Hits:     1,
	})
	telemetry.CountAccepted(string(KindGift))
}

func (m *Monitor) handleNoble(rec *stt.Record, action string) {
	if !m.opts.Enabled(KindGift) {
		telemetry.CountDropped(string(KindGift), "disabled")
		return
	}
	if rec.Str("drid") != m.opts.Room {
		telemetry.CountDropped(string(KindGift), "foreign_room")
		return
	}
	level := rec.Int("nl")
	m.Gifts.Push(GiftEvent{
		Key:        NewKey(),
		Category:   "noble",
		Action:     action,
		Name:       NobleTitle(level),
		Nickname:   rec.Str("unk"),
		NobleLevel: level,
		Count:      1,
		Hits:       1,
	})
	telemetry.CountAccepted(string(KindGift))
}

func (m *Monitor) handleFanUpgrade(rec *stt.Record, level int, nickname string) {
	if !m.opts.Enabled(KindGift) {
		telemetry.CountDropped(string(KindGift), "disabled")
		return
	}
	if rec.Str("rid") != m.opts.Room {
		telemetry.CountDropped(string(KindGift), "foreign_room")
		return
	}
	if level < m.opts.Gift.MinFanLevel {
		telemetry.CountDropped(string(KindGift), "filtered")
		return
	}
	m.Gifts.Push(GiftEvent{
		Key:       NewKey(),
		Category:  "fans",
		Action:    "upgraded",
		Name:      "fan badge level " + strconv.Itoa(level),
		Nickname:  nickname,
		FansLevel: level,
		Count:     1,
		Hits:      1,
	})
	telemetry.CountAccepted(string(KindGift))
}

func (m *Monitor) handleEntrance(rec *stt.Record) {
	if !m.opts.Enabled(KindEnter) {
		telemetry.CountDropped(string(KindEnter), "disabled")
		return
	}
	if rec.Int("level") <= m.opts.Entrance.BanLevel {
		telemetry.CountDropped(string(KindEnter), "filtered")
		return
	}
	m.Entries.Push(EntranceEvent{
		Key:      NewKey(),
		Nickname: rec.Str("nn"),
		Avatar:   rec.Str("ic"),
		Level:    rec.Int("level"),
		Noble:    rec.Int("nl"),
	})
	telemetry.CountAccepted(string(KindEnter))
}

// handleNativeSuperchat turns the gateway's own paid-message kinds into
// superchat events. Each sub-kind carries its price in a different field.
func (m *Monitor) handleNativeSuperchat(typ string, rec *stt.Record) {
	if !m.opts.Enabled(KindSuperchat) {
		telemetry.CountDropped(string(KindSuperchat), "disabled")
		return
	}

	chat := rec.Record("chatmsg")
	price := 10.0
	txt := rec.Str("txt")
	switch typ {
	case "sc", "superchat":
		if p := rec.Float("price"); p != 0 {
			price = p
		} else if c := rec.Float("cost"); c != 0 {
			price = c
		}
		if txt == "" {
			txt = rec.Str("msg")
		}
	case "fansPaper":
		// Text level stands in for price as a negative tier.
		price = -1
		if lv := rec.Float("textLevel"); lv != 0 {
			price = lv
		}
	case "professgiftsrc":
		price = -3
	case "voiceDanmu":
		// Prices arrive in currency subunits.
		if p := rec.Float("crealPrice"); p != 0 {
			price = p / 100
		} else if p := rec.Float("cprice"); p != 0 {
			price = p / 100
		}
		if chat != nil && chat.Str("txt") != "" {
			txt = chat.Str("txt")
		}
	}

	sc := m.buildSuperchat(rec, price, txt)
	m.Superchats.Push(sc)
	telemetry.CountAccepted(string(KindSuperchat))
}

// buildSuperchat projects a record into a SuperchatEvent. User fields are
// taken preferentially from the nested chatmsg sub-record when present, since
// broadcast wrappers carry the real sender there.
func (m *Monitor) buildSuperchat(rec *stt.Record, price float64, txt string) SuperchatEvent {
	chat := rec.Record("chatmsg")
	if price < 0 {
		price = 0
	}
	nickname := coalesce(fld(chat, "nn"), fld(rec, "nn"), fld(rec, "nick"), fld(rec, "userName"), fld(rec, "unk"))
	if nickname == "" {
		nickname = "anonymous"
	}
	avatar := coalesce(fld(chat, "ic"), fld(rec, "ic"), fld(rec, "icon"), fld(rec, "uic"), fld(rec, "avatar"))
	if txt == "" {
		txt = coalesce(fld(chat, "txt"), fld(rec, "txt"), fld(rec, "msg"), fld(rec, "content"))
	}
	fansLevel := 0
	if chat != nil && chat.Has("bl") {
		fansLevel = chat.Int("bl")
	} else {
		fansLevel = rec.Int("bl")
	}
	header, body := tierColors(m.opts.Superchat.Tiers, price)
	duration := PriceToDuration(price)
	return SuperchatEvent{
		Key:         keyOf(rec),
		UserID:      coalesce(fld(rec, "uid"), fld(rec, "userId")),
		Nickname:    nickname,
		Avatar:      avatar,
		Text:        txt,
		Price:       price,
		Tier:        PriceToTier(price),
		HeaderColor: header,
		BodyColor:   body,
		Duration:    duration,
		DurationSec: int(duration / time.Second),
		CreatedAt:   time.Now(),
		FansName:    coalesce(fld(chat, "bnn"), fld(rec, "bnn")),
		FansLevel:   fansLevel,
		Noble:       chat.Int("nl") != 0 || rec.Int("nl") != 0,
		RoomAdmin:   chat.Int("rg") == 4 || rec.Int("rg") == 4,
		Diamond:     chat.Int("diaf") != 0 || rec.Int("diaf") != 0,
	}
}

// keyOf prefers the gateway's own message id as the presentation key.
func keyOf(rec *stt.Record) string {
	if cid := rec.Str("cid"); cid != "" {
		return cid
	}
	return NewKey()
}

func firstOf(rec *stt.Record, keys ...string) string {
	for _, k := range keys {
		if v := rec.Str(k); v != "" {
			return v
		}
	}
	return ""
}

func fld(rec *stt.Record, key string) string {
	if rec == nil {
		return ""
	}
	return rec.Str(key)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
