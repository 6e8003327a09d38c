package commission

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DebounceInterval is the delay after an fsnotify event before re-reading the
// tier file, so editors that write in several steps are read once.
const DebounceInterval = 100 * time.Millisecond

type tierFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadFile reads a tier table from a YAML file.
func LoadFile(path string) ([]Tier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier file: %w", err)
	}
	var tf tierFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tier file: %w", err)
	}
	if err := ValidateTiers(tf.Tiers); err != nil {
		return nil, err
	}
	return tf.Tiers, nil
}

// Watch hot-reloads the calculator from path whenever the file changes. It
// blocks until ctx is cancelled. A table that fails validation is logged and
// skipped; the calculator keeps serving the previous table.
func (c *Calculator) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	slog.Info("commission tier watcher started", "path", path)
	var timer *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			slog.Info("commission tier watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(DebounceInterval, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			tiers, err := LoadFile(path)
			if err != nil {
				slog.Error("commission tier reload failed, keeping previous table", "path", path, "error", err)
				continue
			}
			if err := c.Reload(tiers); err != nil {
				slog.Error("commission tier reload rejected, keeping previous table", "path", path, "error", err)
				continue
			}
			slog.Info("commission tier table reloaded", "path", path, "tiers", len(tiers))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("commission tier watcher error", "error", err)
		}
	}
}
