package compile

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/fsnotify.v1"

	"github.com/walteh/gorazor/pkg/engine"
	"github.com/walteh/gorazor/pkg/finder"
)

// runWatch compiles files once and then again whenever a template below the
// watched directories changes. A changed import file recompiles everything.
func (me *Handler) runWatch(ctx context.Context, afs afero.Fs, eng *engine.Engine, base string, files []string) error {
	logger := zerolog.Ctx(ctx)
	if err := me.compile(ctx, eng, base, files); err != nil && !errors.Is(err, ErrCompilationFailed) {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := me.watchDirs(afs, watcher, base); err != nil {
		return err
	}
	match, err := finder.New(afs)
	if err != nil {
		return err
	}
	imports := eng.ImportFiles()

	logger.Info().Str("dir", base).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := afs.Stat(ev.Name); err == nil && info.IsDir() {
				if err := me.watchDirs(afs, watcher, ev.Name); err != nil {
					logger.Warn().Err(err).Msg("watching new directory")
				}
				continue
			}

			var todo []string
			switch {
			case slices.Contains(imports, filepath.Base(ev.Name)):
				if todo, err = me.templates(ctx, afs, base); err != nil {
					logger.Warn().Err(err).Msg("listing templates")
					continue
				}
			case match.Match(outputName(base, ev.Name)):
				todo = []string{ev.Name}
			default:
				continue
			}

			logger.Debug().Str("file", ev.Name).Int("templates", len(todo)).Msg("recompiling")
			if err := me.compile(ctx, eng, base, todo); err != nil && !errors.Is(err, ErrCompilationFailed) {
				logger.Error().Err(err).Msg("recompiling")
			}
		}
	}
}

// watchDirs adds dir and every directory below it.
func (me *Handler) watchDirs(afs afero.Fs, watcher *fsnotify.Watcher, dir string) error {
	return afero.Walk(afs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return errors.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
