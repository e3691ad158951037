package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "models_dir: /tmp\nmodel: m1\nthreads: 8\ncontext_length: 2048\ntemperature: 0\ntop_k: 40\nstop: [\"\\n\\n\"]\ndrain_timeout: 2s\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelsDir != "/tmp" || cfg.Model != "m1" || cfg.Threads != 8 || cfg.ContextLength != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("explicit temperature 0 must be kept: %v", cfg.Temperature)
	}
	if cfg.TopP != nil {
		t.Fatalf("top_p must stay unset")
	}
	if cfg.TopK == nil || *cfg.TopK != 40 || len(cfg.Stop) != 1 || cfg.Stop[0] != "\n\n" {
		t.Fatalf("unexpected sampling: %+v", cfg)
	}
	if d, _ := cfg.Drain(); d != 2*time.Second {
		t.Fatalf("drain = %v", d)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"model":"m2","engine":"toy","max_tokens":64,"top_p":0.5,"log_level":"debug","log_format":"json"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "m2" || cfg.Engine != "toy" || *cfg.MaxTokens != 64 || *cfg.TopP != 0.5 || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "model=\"m3\"\nbatch_size=256\nseed=7\nmetrics_file=\"/tmp/x.prom\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "m3" || cfg.BatchSize != 256 || *cfg.Seed != 7 || cfg.MetricsFile != "/tmp/x.prom" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	cases := map[string]string{
		"cfg.txt":     "not supported",
		"bad.yaml":    "model: m\n: broken\n",
		"bad.json":    `{ "model": }`,
		"bad.toml":    "model=\nthreads\n",
		"neg.yaml":    "threads: -1\n",
		"engine.yaml": "engine: onnx\n",
		"drain.yaml":  "drain_timeout: soon\n",
		"format.json": `{"log_format":"xml"}`,
	}
	for name, content := range cases {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}
