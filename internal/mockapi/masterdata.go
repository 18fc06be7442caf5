package mockapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/taptrack/internal/domain/masterdata"
)

const (
	masterDataDirPerm  = 0o755
	masterDataFilePerm = 0o644
)

// WriteMasterData writes events.json (and worldBlooms.json for chapter
// events) under root/region so a tracker can be pointed straight at the
// mock. The event runs from start until start+duration.
func WriteMasterData(cfg Config, root, region string, start time.Time, duration time.Duration) error {
	cfg.normalize()

	dir := filepath.Join(root, region)
	if err := os.MkdirAll(dir, masterDataDirPerm); err != nil {
		return fmt.Errorf("create master data dir: %w", err)
	}

	end := start.Add(duration)
	events := []masterdata.Event{{
		ID:          cfg.EventID,
		Name:        fmt.Sprintf("mock event %d", cfg.EventID),
		StartAt:     start.UnixMilli(),
		AggregateAt: end.UnixMilli(),
	}}
	if err := writeJSONFile(filepath.Join(dir, "events.json"), events); err != nil {
		return err
	}

	if cfg.Chapters == 0 {
		return nil
	}

	chapterSpan := duration / time.Duration(cfg.Chapters)
	chapters := make([]masterdata.Chapter, cfg.Chapters)
	for i := range chapters {
		chapterStart := start.Add(time.Duration(i) * chapterSpan)
		chapters[i] = masterdata.Chapter{
			ID:              i + 1,
			EventID:         cfg.EventID,
			GameCharacterID: characterIDBase + i + 1,
			ChapterNo:       i + 1,
			ChapterStartAt:  chapterStart.UnixMilli(),
			AggregateAt:     chapterStart.Add(chapterSpan).UnixMilli(),
		}
	}
	return writeJSONFile(filepath.Join(dir, "worldBlooms.json"), chapters)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, masterDataFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
