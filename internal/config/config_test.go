package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != "8080" || cfg.OutputDir != "./output" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Queue.Backend != BackendMemory {
		t.Fatalf("expected in-memory backends by default")
	}
	if cfg.Script.Scenes != 25 || cfg.OpenAI.ScriptModel != "gpt-4o" || cfg.TTS.Voice != "ko-KR-Neural2-A" {
		t.Fatalf("unexpected collaborator defaults %+v", cfg)
	}
}

func TestLoad_MissingCredentialsAreNotAnError(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"OPENAI_API_KEY": "", "GOOGLE_CREDENTIALS_JSON": ""}))
	if err != nil {
		t.Fatalf("expected startup to tolerate missing credentials, got %v", err)
	}
	if cfg.OpenAI.APIKey != "" {
		t.Fatal("expected empty api key")
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videogen.yaml")
	yml := `
workers: 2
output_dir: /srv/videos
http:
  port: "9000"
  read_timeout: 30s
script:
  scenes: 10
  language: English
tts:
  speaking_rate: 1.1
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(envMap(map[string]string{
		"CONFIG_FILE": path,
		"PORT":        "9100",
		"WORKERS":     "not-a-number",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != "9100" {
		t.Fatalf("expected env to win over file, got port %s", cfg.HTTP.Port)
	}
	if cfg.Workers != 2 {
		t.Fatalf("expected invalid env int to be ignored, got %d", cfg.Workers)
	}
	if cfg.OutputDir != "/srv/videos" || cfg.Script.Scenes != 10 || cfg.Script.Language != "English" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.HTTP.ReadTimeout != 30*time.Second {
		t.Fatalf("expected 30s read timeout, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.TTS.SpeakingRate != 1.1 {
		t.Fatalf("expected speaking rate 1.1, got %v", cfg.TTS.SpeakingRate)
	}
	if cfg.HTTP.WriteTimeout != 10*time.Minute {
		t.Fatalf("expected untouched default write timeout, got %s", cfg.HTTP.WriteTimeout)
	}
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	if _, err := load(envMap(map[string]string{"STORE_BACKEND": "mongo"})); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
	if _, err := load(envMap(map[string]string{"QUEUE_BACKEND": "kafka"})); err == nil {
		t.Fatal("expected error for unknown queue backend")
	}
	if _, err := load(envMap(map[string]string{"STORE_BACKEND": "postgres"})); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	if _, err := load(envMap(map[string]string{"CONFIG_FILE": "/does/not/exist.yaml"})); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
