// Package workspace lays out the per-job directory tree that holds
// intermediate images and audio and the final video.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-generator-service/internal/stage"
)

const (
	imagesDir = "images"
	audioDir  = "audio"
	videoName = "video.mp4"
)

var ErrInvalidJobID = errors.New("workspace: invalid job id")

type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "./output"
	}
	return &Manager{root: filepath.Clean(root)}
}

func (m *Manager) Root() string { return m.root }

// Workspace is the allocated tree of one job.
type Workspace struct {
	Root   string
	Images string
	Audio  string
	Video  string
}

// ImagePath returns the image artifact of the scene with the given ordinal.
func (w Workspace) ImagePath(ordinal, total int) string {
	return filepath.Join(w.Images, sceneName(ordinal, total, ".png"))
}

// AudioPath returns the narration artifact of the scene with the given ordinal.
func (w Workspace) AudioPath(ordinal, total int) string {
	return filepath.Join(w.Audio, sceneName(ordinal, total, ".mp3"))
}

// Allocate creates the job's tree if missing. It is idempotent and never
// removes anything.
func (m *Manager) Allocate(jobID string) (Workspace, error) {
	ws, err := m.layout(jobID)
	if err != nil {
		return Workspace{}, stage.Workspace(err)
	}
	for _, dir := range []string{ws.Root, ws.Images, ws.Audio} {
		if err := ensureDir(dir); err != nil {
			return Workspace{}, stage.Workspace(err)
		}
	}
	return ws, nil
}

// VideoPath derives the final output path without touching disk.
func (m *Manager) VideoPath(jobID string) (string, error) {
	ws, err := m.layout(jobID)
	if err != nil {
		return "", err
	}
	return ws.Video, nil
}

func (m *Manager) layout(jobID string) (Workspace, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" || jobID == "." || jobID == ".." || strings.ContainsAny(jobID, `/\`) {
		return Workspace{}, fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	root := filepath.Join(m.root, jobID)
	return Workspace{
		Root:   root,
		Images: filepath.Join(root, imagesDir),
		Audio:  filepath.Join(root, audioDir),
		Video:  filepath.Join(root, videoName),
	}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("workspace: %s exists and is not a directory", dir)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("workspace: stat %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create %s: %w", dir, err)
	}
	return nil
}

// sceneName pads the ordinal to the width of total, at least two digits.
func sceneName(ordinal, total int, ext string) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("scene_%0*d%s", width, ordinal, ext)
}
