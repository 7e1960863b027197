package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bubblescafe/storyapi/internal/usecase"
)

// seedStory is one entry in the seed YAML file.
type seedStory struct {
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// seedStories imports stories from a YAML file. Entries whose content
// normalizes to empty are reported and skipped.
func seedStories(ctx context.Context, svc usecase.StoryService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedStory
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	imported := 0
	for _, e := range entries {
		story, err := svc.Import(ctx, e.Title, e.Author, e.Content)
		if err != nil {
			slog.Warn("skipping seed entry", slog.String("title", e.Title), slog.Any("error", err))
			continue
		}
		imported++
		slog.Info("seeded story", slog.String("id", story.ID), slog.String("slug", story.Slug))
	}
	slog.Info("seeding finished", slog.Int("imported", imported), slog.Int("total", len(entries)))
	return nil
}
