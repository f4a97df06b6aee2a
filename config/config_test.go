package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Threshold != 100 {
		t.Errorf("Threshold = %d, want 100", cfg.Threshold)
	}
	if cfg.SuperchatKeyword != "#sc" {
		t.Errorf("SuperchatKeyword = %q, want #sc", cfg.SuperchatKeyword)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.GiftMinFanLevel != 6 {
		t.Errorf("GiftMinFanLevel = %d, want 6", cfg.GiftMinFanLevel)
	}
	if len(cfg.SuperchatTiers) == 0 {
		t.Error("expected default superchat tier table")
	}
	if len(cfg.CommandKeywords) != 2 {
		t.Errorf("CommandKeywords = %v", cfg.CommandKeywords)
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DOUYU_ROOM_ID", "317422")
	t.Setenv("MONITOR_KINDS", "danmaku, gift ,enter")
	t.Setenv("MONITOR_THRESHOLD", "250")
	t.Setenv("DANMAKU_BAN_KEYWORDS", "bad worse")
	t.Setenv("DANMAKU_FILTER_REPEAT", "true")
	t.Setenv("GIFT_BAN_PRICE", "1.5")
	t.Setenv("HEARTBEAT_INTERVAL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RoomID != "317422" {
		t.Errorf("RoomID = %q", cfg.RoomID)
	}
	if len(cfg.Kinds) != 3 || cfg.Kinds[1] != "gift" {
		t.Errorf("Kinds = %v", cfg.Kinds)
	}
	if cfg.Threshold != 250 {
		t.Errorf("Threshold = %d", cfg.Threshold)
	}
	if !cfg.DanmakuFilterRepeat {
		t.Error("DanmakuFilterRepeat not set")
	}
	if cfg.GiftBanPrice != 1.5 {
		t.Errorf("GiftBanPrice = %v", cfg.GiftBanPrice)
	}
	if cfg.HeartbeatInterval != 45*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
}

func TestSuperchatTiersJSON(t *testing.T) {
	t.Setenv("SUPERCHAT_TIERS", `[{"minPrice":50,"headerColor":"#111","bodyColor":"#222"}]`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.SuperchatTiers) != 1 || cfg.SuperchatTiers[0].MinPrice != 50 {
		t.Errorf("SuperchatTiers = %+v", cfg.SuperchatTiers)
	}

	t.Setenv("SUPERCHAT_TIERS", "not-json")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed tier table")
	}
}

func TestValidateMonitorReady(t *testing.T) {
	t.Setenv("DOUYU_ROOM_ID", "317422")
	cfg, _ := Load()
	if err := cfg.ValidateMonitorReady(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	t.Setenv("DOUYU_ROOM_ID", "")
	cfg, _ = Load()
	if err := cfg.ValidateMonitorReady(); err == nil {
		t.Error("expected error when room id missing")
	}

	t.Setenv("DOUYU_ROOM_ID", "not-a-number")
	cfg, _ = Load()
	if err := cfg.ValidateMonitorReady(); err == nil {
		t.Error("expected error for non-numeric room id")
	}
}

func TestMonitorOptionsProjection(t *testing.T) {
	t.Setenv("DOUYU_ROOM_ID", "1")
	t.Setenv("MONITOR_KINDS", "danmaku,superchat")
	t.Setenv("DANMAKU_BAN_KEYWORDS", " bad  worse ")

	cfg, _ := Load()
	opts := cfg.MonitorOptions()
	if opts.Room != "1" {
		t.Errorf("Room = %q", opts.Room)
	}
	if !opts.Enabled("danmaku") || opts.Enabled("gift") {
		t.Errorf("Kinds = %v", opts.Kinds)
	}
	if len(opts.Chat.BanKeywords) != 2 {
		t.Errorf("BanKeywords = %v", opts.Chat.BanKeywords)
	}
}
