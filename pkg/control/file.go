package control

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSource reloads the configuration whenever the file is written or
// replaced. The parent directory is watched so atomic renames are seen.
type FileSource struct {
	path    string
	applier *Applier
	log     *zap.Logger
}

func NewFileSource(path string, applier *Applier, log *zap.Logger) *FileSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSource{
		path:    filepath.Clean(path),
		applier: applier,
		log:     log.With(zap.String("source", "file"), zap.String("path", path)),
	}
}

// Start begins watching and returns once the watch is registered.
func (f *FileSource) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", f.path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				f.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.log.Error("watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (f *FileSource) reload() {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		// Mid-rename; the Create event that follows carries the new content.
		f.log.Debug("config file not readable", zap.Error(err))
		return
	}
	f.log.Info("config file changed")
	_ = f.applier.Apply(raw)
}
