package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"video-generator-service/internal/entity"
)

const (
	defaultScriptModel = "gpt-4o"
	defaultSceneCount  = 25
	defaultLanguage    = "Korean"
)

type ScriptOptions struct {
	Options
	Model    string
	Scenes   int
	Language string
}

// ScriptWriter asks a chat model for a scene-by-scene narration script.
type ScriptWriter struct {
	c        *client
	model    string
	scenes   int
	language string
}

func NewScriptWriter(opts ScriptOptions) *ScriptWriter {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultScriptModel
	}
	scenes := opts.Scenes
	if scenes <= 0 {
		scenes = defaultSceneCount
	}
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = defaultLanguage
	}
	return &ScriptWriter{c: newClient(opts.Options), model: model, scenes: scenes, language: language}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type scriptDocument struct {
	Scenes []entity.Scene `json:"scenes"`
}

func (w *ScriptWriter) WriteScript(ctx context.Context, keyword string, durationMinutes int) ([]entity.Scene, error) {
	payload := chatRequest{
		Model:          w.model,
		Messages:       []chatMessage{{Role: "user", Content: w.prompt(keyword, durationMinutes)}},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	if err := w.c.postJSON(ctx, "/chat/completions", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return parseScript(resp.Choices[0].Message.Content)
}

func parseScript(content string) ([]entity.Scene, error) {
	var doc scriptDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("script is not valid json: %w", err)
	}
	if doc.Scenes == nil {
		return nil, errors.New(`script has no "scenes" list`)
	}
	return doc.Scenes, nil
}

// prompt spreads the story arc over the configured scene count: hook,
// development, twist, then a wrap-up that ends on a question to the viewer.
func (w *ScriptWriter) prompt(keyword string, durationMinutes int) string {
	n := w.scenes
	hookEnd := max(1, n*2/25)
	devEnd := max(hookEnd+1, n*10/25)
	twistEnd := max(devEnd+1, n*20/25)

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", keyword)
	fmt.Fprintf(&b, "Format: emotional story video for a senior audience (%d minutes)\n\n", durationMinutes)
	b.WriteString("Output the script scene by scene as JSON in exactly this shape:\n")
	b.WriteString(`{"scenes": [{"scene": 1, "narration": "narration text", "image_prompt": "image prompt for DALL-E (English)"}, ...]}`)
	b.WriteString("\n\nStructure:\n")
	fmt.Fprintf(&b, "- scenes 1-%d: hook (open with a strange line from the ending)\n", hookEnd)
	fmt.Fprintf(&b, "- scenes %d-%d: situation, characters, conflict\n", hookEnd+1, devEnd)
	fmt.Fprintf(&b, "- scenes %d-%d: clues and a twist\n", devEnd+1, twistEnd)
	fmt.Fprintf(&b, "- scenes %d-%d: wrap-up and a question for the viewer\n\n", twistEnd+1, n)
	fmt.Fprintf(&b, "%d scenes in total. Write narration in %s, 20-30 seconds each (50-80 characters).\n", n, w.language)
	return b.String()
}
