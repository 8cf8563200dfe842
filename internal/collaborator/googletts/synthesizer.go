// Package googletts synthesizes narration with Google Cloud Text-to-Speech.
package googletts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

type Options struct {
	// CredentialsJSON is a service account key. When empty, application
	// default credentials are used.
	CredentialsJSON string
	Language        string
	Voice           string
	Gender          string
	SpeakingRate    float64

	// ClientOptions are appended when the service client is built.
	ClientOptions []option.ClientOption
}

// Synthesizer builds its API client on first use and reuses it afterwards.
// A failed build is retried on the next call.
type Synthesizer struct {
	opts Options

	mu  sync.Mutex
	svc *texttospeech.Service
}

func New(opts Options) *Synthesizer {
	if opts.Language == "" {
		opts.Language = "ko-KR"
	}
	if opts.Voice == "" {
		opts.Voice = "ko-KR-Neural2-A"
	}
	if opts.Gender == "" {
		opts.Gender = "FEMALE"
	}
	if opts.SpeakingRate <= 0 {
		opts.SpeakingRate = 0.9
	}
	return &Synthesizer{opts: opts}
}

func (s *Synthesizer) service(ctx context.Context) (*texttospeech.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil {
		return s.svc, nil
	}

	opts := make([]option.ClientOption, 0, len(s.opts.ClientOptions)+1)
	if raw := strings.TrimSpace(s.opts.CredentialsJSON); raw != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(raw), texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	opts = append(opts, s.opts.ClientOptions...)

	// The client outlives the job that happened to build it.
	svc, err := texttospeech.NewService(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("create tts client: %w", err)
	}
	s.svc = svc
	return svc, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, narration, dst string) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: narration},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: s.opts.Language,
			Name:         s.opts.Voice,
			SsmlGender:   s.opts.Gender,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  s.opts.SpeakingRate,
		},
	}
	resp, err := svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if resp.AudioContent == "" {
		return errors.New("synthesize: empty audio content")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return fmt.Errorf("decode audio content: %w", err)
	}
	if err := os.WriteFile(dst, audio, 0o644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
