package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livechat.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server_url: wss://chat.example.com/ws
api_key: key-1
user_id: u1
username: alice
room_id: lobby
heartbeat_interval: 10s
reconnect_delay: 1s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.ServerURL != "wss://chat.example.com/ws" || cfg.APIKey != "key-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("expected 10s heartbeat, got %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Errorf("expected 1s reconnect delay, got %v", cfg.ReconnectDelay)
	}

	id := cfg.Identity()
	if id.UserID != "u1" || id.Username != "alice" || id.RoomID != "lobby" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `
server_url: wss://chat.example.com/ws
user_id: u1
room_id: lobby
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected default 30s heartbeat, got %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectDelay != 3*time.Second {
		t.Errorf("expected default 3s reconnect delay, got %v", cfg.ReconnectDelay)
	}
}

func TestLoadFileValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing server_url", "user_id: u1\nroom_id: lobby\n"},
		{"missing user_id", "server_url: wss://x\nroom_id: lobby\n"},
		{"missing room_id", "server_url: wss://x\nuser_id: u1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LIVECHAT_SERVER_URL", "wss://chat.example.com/ws")
	t.Setenv("LIVECHAT_USER_ID", "u1")
	t.Setenv("LIVECHAT_USERNAME", "alice")
	t.Setenv("LIVECHAT_ROOM_ID", "lobby")
	t.Setenv("LIVECHAT_HEARTBEAT_INTERVAL", "15s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("env parse error: %v", err)
	}
	if cfg.ServerURL != "wss://chat.example.com/ws" || cfg.UserID != "u1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Errorf("expected 15s heartbeat, got %v", cfg.HeartbeatInterval)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LIVECHAT_SERVER_URL", "wss://chat.example.com/ws")
	t.Setenv("LIVECHAT_USER_ID", "u1")
	t.Setenv("LIVECHAT_ROOM_ID", "lobby")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("env parse error: %v", err)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected default heartbeat, got %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectDelay != 3*time.Second {
		t.Errorf("expected default reconnect delay, got %v", cfg.ReconnectDelay)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("LIVECHAT_SERVER_URL", "")
	t.Setenv("LIVECHAT_USER_ID", "")
	t.Setenv("LIVECHAT_ROOM_ID", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected validation error")
	}
}
