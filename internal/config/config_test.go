package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CHESSBENCH_BIND", "CHESSBENCH_ENGINES", "MAX_CONCURRENT_MATCHES", "STREAM_INTERVAL", "HANDSHAKE_TIMEOUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != "0.0.0.0:8080" || cfg.StreamInterval != 200*time.Millisecond || cfg.HandshakeTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxConcurrentMatches != 0 || cfg.SnapshotTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("missing roster path should fail validation")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CHESSBENCH_BIND", "127.0.0.1:9000")
	t.Setenv("CHESSBENCH_ENGINES", "env.yaml")
	t.Setenv("MAX_CONCURRENT_MATCHES", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse([]string{"--config", "flag.yaml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Bind != "127.0.0.1:9000" || cfg.EnginesFile != "flag.yaml" || cfg.MaxConcurrentMatches != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("STREAM_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseRoster(t *testing.T) {
	handles, err := ParseRoster([]byte(`
engines:
  - id: stockfish
    path: /usr/bin/stockfish
  - id: lc0
    path: lc0
    args: ["--weights=net.pb"]
    working_dir: /opt/lc0
`))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(handles) != 2 || handles[1].Args[0] != "--weights=net.pb" || handles[1].WorkingDir != "/opt/lc0" {
		t.Fatalf("unexpected handles %+v", handles)
	}
}

func TestParseRosterValidation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "engines: []", ErrEmptyRoster},
		{"missing list", "", ErrEmptyRoster},
		{"blank id", "engines:\n  - id: ' '\n    path: /bin/x\n", ErrEmptyEngineID},
		{"blank path", "engines:\n  - id: a\n    path: ''\n", ErrEmptyEnginePath},
		{"duplicate", "engines:\n  - id: a\n    path: /x\n  - id: a\n    path: /y\n", ErrDuplicateEngine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRoster([]byte(tc.doc)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if _, err := ParseRoster([]byte("engines:\n  - id: a\n    path: /x\n    colour: blue\n")); err == nil {
		t.Fatalf("unknown fields should be rejected")
	}
}

func TestLoadRosterResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "engines.yaml")
	doc := "engines:\n  - id: local\n    path: ./bin/engine\n    working_dir: ./work\n  - id: onpath\n    path: stockfish\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	handles, err := LoadRoster(file)
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if handles[0].Path != filepath.Join(dir, "bin", "engine") || handles[0].WorkingDir != filepath.Join(dir, "work") {
		t.Fatalf("relative paths not resolved: %+v", handles[0])
	}
	if handles[1].Path != "stockfish" {
		t.Fatalf("bare command should stay on PATH: %q", handles[1].Path)
	}
	if _, err := LoadRoster(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
