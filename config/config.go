// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// The room id is the only required value; use ValidateMonitorReady before connecting.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forzenfox/douyu-monitor/monitor"
)

type Config struct {
	// Room
	RoomID string

	// Monitor
	Kinds       []string
	Threshold   int
	DedupWindow time.Duration

	DanmakuBanLevel     int
	DanmakuBanKeywords  string
	DanmakuBanNicknames string
	DanmakuFilterRepeat bool

	EnterBanLevel int

	GiftBanPrice    float64
	GiftBanKeywords string
	GiftMinFanLevel int

	SuperchatKeyword string
	SuperchatTiers   []monitor.Tier
	ContributionTTL  time.Duration

	CommandPrefix   string
	CommandKeywords []string

	// Session
	HeartbeatInterval    time.Duration
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	MaxReconnectAttempts int
	Endpoints            []string

	// Gift catalog
	GiftAPIBase         string
	GiftRefreshInterval time.Duration

	// HTTP
	ServerAddr string
}

// Load reads environment variables and applies defaults. It only fails on
// values that cannot be parsed; a missing room id is caught later by
// ValidateMonitorReady so tooling can still load the config.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.RoomID = os.Getenv("DOUYU_ROOM_ID")

	cfg.Kinds = splitList(getEnv("MONITOR_KINDS", "danmaku,superchat,command"))
	cfg.Threshold = getInt("MONITOR_THRESHOLD", 100)
	cfg.DedupWindow = getDuration("DEDUP_WINDOW", time.Minute)

	cfg.DanmakuBanLevel = getInt("DANMAKU_BAN_LEVEL", 0)
	cfg.DanmakuBanKeywords = os.Getenv("DANMAKU_BAN_KEYWORDS")
	cfg.DanmakuBanNicknames = os.Getenv("DANMAKU_BAN_NICKNAMES")
	cfg.DanmakuFilterRepeat = getBool("DANMAKU_FILTER_REPEAT", false)

	cfg.EnterBanLevel = getInt("ENTER_BAN_LEVEL", 0)

	cfg.GiftBanPrice = getFloat("GIFT_BAN_PRICE", 0)
	cfg.GiftBanKeywords = os.Getenv("GIFT_BAN_KEYWORDS")
	cfg.GiftMinFanLevel = getInt("GIFT_MIN_FANS_LEVEL", 6)

	cfg.SuperchatKeyword = getEnv("SUPERCHAT_KEYWORD", "#sc")
	cfg.ContributionTTL = getDuration("SUPERCHAT_CONTRIB_TTL", 10*time.Minute)
	if v := os.Getenv("SUPERCHAT_TIERS"); v != "" {
		var tiers []monitor.Tier
		if err := json.Unmarshal([]byte(v), &tiers); err != nil {
			return nil, fmt.Errorf("invalid SUPERCHAT_TIERS (JSON array): %w", err)
		}
		cfg.SuperchatTiers = tiers
	} else {
		cfg.SuperchatTiers = monitor.DefaultTiers()
	}

	cfg.CommandPrefix = getEnv("COMMAND_PREFIX", "#")
	cfg.CommandKeywords = splitList(getEnv("COMMAND_KEYWORDS", "点歌,转盘"))

	cfg.HeartbeatInterval = getDuration("HEARTBEAT_INTERVAL", 30*time.Second)
	cfg.BackoffBase = getDuration("BACKOFF_BASE", time.Second)
	cfg.BackoffCap = getDuration("BACKOFF_CAP", time.Minute)
	cfg.MaxReconnectAttempts = getInt("RECONNECT_MAX_ATTEMPTS", 50)
	if v := os.Getenv("DANMU_ENDPOINTS"); v != "" {
		cfg.Endpoints = splitList(v)
	}

	cfg.GiftAPIBase = os.Getenv("GIFT_API_BASE")
	cfg.GiftRefreshInterval = getDuration("GIFT_REFRESH_INTERVAL", 5*time.Minute)

	cfg.ServerAddr = getEnv("SERVER_ADDR", ":8080")

	return cfg, nil
}

// ValidateMonitorReady checks required fields before a session may connect.
func (c *Config) ValidateMonitorReady() error {
	if c.RoomID == "" {
		return fmt.Errorf("missing env: DOUYU_ROOM_ID is required")
	}
	if _, err := strconv.Atoi(c.RoomID); err != nil {
		return fmt.Errorf("invalid DOUYU_ROOM_ID %q: must be numeric", c.RoomID)
	}
	return nil
}

// MonitorOptions projects the config into the monitor's immutable snapshot.
func (c *Config) MonitorOptions() monitor.Options {
	kinds := make([]monitor.Kind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		kinds = append(kinds, monitor.Kind(k))
	}
	return monitor.Options{
		Room:        c.RoomID,
		Kinds:       kinds,
		Threshold:   c.Threshold,
		DedupWindow: c.DedupWindow,
		Chat: monitor.ChatRules{
			BanLevel:     c.DanmakuBanLevel,
			BanKeywords:  monitor.SplitKeywords(c.DanmakuBanKeywords),
			BanNicknames: monitor.SplitKeywords(c.DanmakuBanNicknames),
			FilterRepeat: c.DanmakuFilterRepeat,
		},
		Entrance: monitor.EntranceRules{BanLevel: c.EnterBanLevel},
		Gift: monitor.GiftRules{
			MinPrice:    c.GiftBanPrice,
			BanKeywords: monitor.SplitKeywords(c.GiftBanKeywords),
			MinFanLevel: c.GiftMinFanLevel,
		},
		Superchat: monitor.SuperchatRules{
			Keyword:         c.SuperchatKeyword,
			Tiers:           c.SuperchatTiers,
			ContributionTTL: c.ContributionTTL,
		},
		Command: monitor.CommandRules{
			Prefix:   c.CommandPrefix,
			Keywords: c.CommandKeywords,
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
