package googletts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

func newTestSynthesizer(t *testing.T, h http.HandlerFunc) *Synthesizer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{ClientOptions: []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithoutAuthentication(),
	}})
}

func TestSynthesize_WritesDecodedAudio(t *testing.T) {
	var got texttospeech.SynthesizeSpeechRequest
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "text:synthesize") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("MP3BYTES")),
		})
	})

	dst := filepath.Join(t.TempDir(), "scene_01.mp3")
	if err := s.Synthesize(context.Background(), "안녕하세요", dst); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil || string(b) != "MP3BYTES" {
		t.Fatalf("unexpected audio %q, %v", b, err)
	}
	if got.Input == nil || got.Input.Text != "안녕하세요" {
		t.Fatalf("unexpected input %+v", got.Input)
	}
	if got.Voice == nil || got.Voice.Name != "ko-KR-Neural2-A" || got.Voice.LanguageCode != "ko-KR" || got.Voice.SsmlGender != "FEMALE" {
		t.Fatalf("unexpected voice %+v", got.Voice)
	}
	if got.AudioConfig == nil || got.AudioConfig.AudioEncoding != "MP3" || got.AudioConfig.SpeakingRate != 0.9 {
		t.Fatalf("unexpected audio config %+v", got.AudioConfig)
	}
}

func TestSynthesize_ReusesClient(t *testing.T) {
	var calls atomic.Int32
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"audioContent": base64.StdEncoding.EncodeToString([]byte("x"))})
	})

	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.mp3"} {
		if err := s.Synthesize(context.Background(), "text", filepath.Join(dir, name)); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
	}
	first := s.svc
	if first == nil || calls.Load() != 2 {
		t.Fatalf("expected cached client and two calls, got %d", calls.Load())
	}
}

func TestSynthesize_ServiceError(t *testing.T) {
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied"}}`))
	})

	dst := filepath.Join(t.TempDir(), "a.mp3")
	err := s.Synthesize(context.Background(), "text", dst)
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected service error, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatal("expected no audio file on failure")
	}
}

func TestSynthesize_InvalidCredentials(t *testing.T) {
	s := New(Options{CredentialsJSON: "{not json"})
	if err := s.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "a.mp3")); err == nil {
		t.Fatal("expected credentials error")
	}
	if s.svc != nil {
		t.Fatal("failed build must not be cached")
	}
}
