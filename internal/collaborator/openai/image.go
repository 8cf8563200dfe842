package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	defaultImageModel   = "dall-e-3"
	defaultImageSize    = "1792x1024"
	defaultImageQuality = "standard"
)

type ImageOptions struct {
	Options
	Model   string
	Size    string
	Quality string
}

// ImageGenerator renders one image per directive and downloads it to disk.
type ImageGenerator struct {
	c       *client
	model   string
	size    string
	quality string
}

func NewImageGenerator(opts ImageOptions) *ImageGenerator {
	return &ImageGenerator{
		c:       newClient(opts.Options),
		model:   orDefault(opts.Model, defaultImageModel),
		size:    orDefault(opts.Size, defaultImageSize),
		quality: orDefault(opts.Quality, defaultImageQuality),
	}
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (g *ImageGenerator) GenerateImage(ctx context.Context, directive, dst string) error {
	payload := imageRequest{
		Model:   g.model,
		Prompt:  directive,
		Size:    g.size,
		Quality: g.quality,
		N:       1,
	}

	var resp imageResponse
	if err := g.c.postJSON(ctx, "/images/generations", payload, &resp); err != nil {
		return err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return errors.New("openai returned no image url")
	}
	return g.download(ctx, resp.Data[0].URL, dst)
}

func (g *ImageGenerator) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := g.c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("write image file: %w", err)
	}
	return f.Close()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
