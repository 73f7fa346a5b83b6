package commands

import (
	"testing"
	"time"
)

func TestResolveListenAddr_EnvDefaultsApply(t *testing.T) {
	t.Setenv("SITECHAT_HOST", "127.0.0.1")
	t.Setenv("SITECHAT_PORT", "9090")

	cmd := NewServeCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	host, port := resolveListenAddr(cmd.Flags(), "0.0.0.0", 8080)
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want env value 127.0.0.1", host)
	}
	if port != 9090 {
		t.Errorf("port = %d, want env value 9090", port)
	}
}

func TestResolveListenAddr_FlagsBeatEnv(t *testing.T) {
	t.Setenv("SITECHAT_HOST", "127.0.0.1")
	t.Setenv("SITECHAT_PORT", "9090")

	cmd := NewServeCmd()
	if err := cmd.ParseFlags([]string{"--host", "10.0.0.5", "--port", "3000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	host, port := resolveListenAddr(cmd.Flags(), "10.0.0.5", 3000)
	if host != "10.0.0.5" {
		t.Errorf("host = %q, want explicit flag value 10.0.0.5", host)
	}
	if port != 3000 {
		t.Errorf("port = %d, want explicit flag value 3000", port)
	}
}

func TestResolveListenAddr_BuiltInDefaults(t *testing.T) {
	t.Setenv("SITECHAT_HOST", "")
	t.Setenv("SITECHAT_PORT", "")

	cmd := NewServeCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	host, port := resolveListenAddr(cmd.Flags(), "0.0.0.0", 8080)
	if host != "0.0.0.0" || port != 8080 {
		t.Errorf("got %s:%d, want built-in default 0.0.0.0:8080", host, port)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("RETENTION_TEST", "72h")
	if got := envDuration("RETENTION_TEST", time.Hour); got != 72*time.Hour {
		t.Errorf("envDuration = %v, want 72h", got)
	}

	t.Setenv("RETENTION_TEST", "not-a-duration")
	if got := envDuration("RETENTION_TEST", time.Hour); got != time.Hour {
		t.Errorf("invalid value: got %v, want fallback 1h", got)
	}

	t.Setenv("RETENTION_TEST", "")
	if got := envDuration("RETENTION_TEST", time.Hour); got != time.Hour {
		t.Errorf("unset: got %v, want fallback 1h", got)
	}
}
