package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("EVENT_CHANNEL", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.EventChannel != "duakasir:events" {
		t.Fatalf("unexpected event channel %q", cfg.EventChannel)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadDoesNotInjectWeakAuthDefault(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadRejectsBogusTTL(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected ttl fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadTrimsPeerSettings(t *testing.T) {
	t.Setenv("PEER_URL", "  ws://other-till:8080/ws/events  ")
	t.Setenv("PEER_TOKEN", " token ")

	cfg := Load()
	if cfg.PeerURL != "ws://other-till:8080/ws/events" {
		t.Fatalf("expected trimmed peer url, got %q", cfg.PeerURL)
	}
	if cfg.PeerToken != "token" {
		t.Fatalf("expected trimmed peer token, got %q", cfg.PeerToken)
	}
}
