// Package stage defines the contracts the pipeline needs from each
// generation step and the tagged error type used to report their failures.
package stage

import (
	"context"

	"video-generator-service/internal/entity"
)

// ScriptWriter turns a keyword into an ordered list of scenes.
type ScriptWriter interface {
	WriteScript(ctx context.Context, keyword string, durationMinutes int) ([]entity.Scene, error)
}

// ImageGenerator renders one image directive to dst.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, directive, dst string) error
}

// SpeechSynthesizer renders one narration to an audio file at dst.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, narration, dst string) error
}

// Assembler composes the final video. images, audio and scenes are
// positionally correlated; each scene is shown for the length of its audio.
type Assembler interface {
	Assemble(ctx context.Context, images, audio []string, scenes []entity.Scene, dst string) error
}

// Set bundles the four adapters a pipeline run needs.
type Set struct {
	Script   ScriptWriter
	Image    ImageGenerator
	Speech   SpeechSynthesizer
	Assembly Assembler
}
