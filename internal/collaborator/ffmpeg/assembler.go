// Package ffmpeg composes the final video with the ffmpeg and ffprobe
// binaries: one clip per scene, then a lossless concat.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-generator-service/internal/entity"
)

type Options struct {
	FFmpegBin  string
	FFprobeBin string
	Font       string
	FontSize   int
	FPS        int
	Height     int
	WrapWidth  int
}

// runner executes a binary and returns its combined output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Assembler struct {
	opts Options
	run  runner
}

func New(opts Options) *Assembler {
	if strings.TrimSpace(opts.FFmpegBin) == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if strings.TrimSpace(opts.FFprobeBin) == "" {
		opts.FFprobeBin = "ffprobe"
	}
	if opts.Font == "" {
		opts.Font = "NanumGothic"
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 40
	}
	if opts.FPS <= 0 {
		opts.FPS = 24
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.WrapWidth <= 0 {
		opts.WrapWidth = 28
	}
	return &Assembler{opts: opts, run: execRunner}
}

// Assemble renders each scene as a still image held for the length of its
// narration with the narration captioned at the bottom, then joins the clips
// into dst. Intermediate files go to a clips directory next to dst.
func (a *Assembler) Assemble(ctx context.Context, images, audio []string, scenes []entity.Scene, dst string) error {
	if len(images) == 0 {
		return errors.New("no scenes to assemble")
	}
	if len(images) != len(audio) || len(images) != len(scenes) {
		return fmt.Errorf("mismatched inputs: %d images, %d audio, %d scenes", len(images), len(audio), len(scenes))
	}

	clipsDir := filepath.Join(filepath.Dir(dst), "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return fmt.Errorf("create clips dir: %w", err)
	}

	clips := make([]string, len(scenes))
	for i, sc := range scenes {
		dur, err := a.duration(ctx, audio[i])
		if err != nil {
			return fmt.Errorf("scene %d: %w", i+1, err)
		}

		base := filepath.Join(clipsDir, fmt.Sprintf("scene_%03d", i+1))
		textFile := base + ".txt"
		if err := os.WriteFile(textFile, []byte(Wrap(sc.Narration, a.opts.WrapWidth)), 0o644); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}

		clips[i] = base + ".mp4"
		out, err := a.run(ctx, a.opts.FFmpegBin, a.sceneArgs(images[i], audio[i], textFile, dur, clips[i])...)
		if err != nil {
			return fmt.Errorf("render scene %d: %w: %s", i+1, err, tail(out))
		}
	}

	listFile := filepath.Join(clipsDir, "concat.txt")
	if err := os.WriteFile(listFile, []byte(concatList(clips)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	out, err := a.run(ctx, a.opts.FFmpegBin, "-y", "-f", "concat", "-safe", "0", "-i", listFile, "-c", "copy", dst)
	if err != nil {
		return fmt.Errorf("concat clips: %w: %s", err, tail(out))
	}
	return nil
}

func (a *Assembler) sceneArgs(image, audio, textFile string, seconds float64, out string) []string {
	fps := strconv.Itoa(a.opts.FPS)
	filter := fmt.Sprintf(
		"scale=-2:%d,format=yuv420p,drawtext=font='%s':textfile='%s':expansion=none:fontsize=%d:fontcolor=white:borderw=2:bordercolor=black:line_spacing=8:x=(w-text_w)/2:y=h-text_h-%d",
		a.opts.Height, escapeFilterValue(a.opts.Font), escapeFilterValue(textFile), a.opts.FontSize, a.opts.FontSize*2,
	)
	return []string{
		"-y",
		"-loop", "1", "-framerate", fps, "-i", image,
		"-i", audio,
		"-t", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-vf", filter,
		"-r", fps,
		"-c:v", "libx264", "-tune", "stillimage", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-ar", "44100", "-ac", "2",
		"-shortest",
		out,
	}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (a *Assembler) duration(ctx context.Context, path string) (float64, error) {
	out, err := a.run(ctx, a.opts.FFprobeBin, "-v", "error", "-show_entries", "format=duration", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", filepath.Base(path), err, tail(out))
	}
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("ffprobe %s: no usable duration %q", filepath.Base(path), probe.Format.Duration)
	}
	return d, nil
}

func concatList(clips []string) string {
	var b strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return b.String()
}

// escapeFilterValue quotes a value for use inside a single-quoted filtergraph
// option.
func escapeFilterValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `'\''`, `:`, `\:`)
	return r.Replace(s)
}

func tail(out []byte) string {
	out = bytes.TrimSpace(out)
	const limit = 512
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
