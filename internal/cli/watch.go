package cli

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/stackbump/pkg/apply"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/deps"
)

const watchDebounce = 300 * time.Millisecond

// relevant reports whether a change to name can alter a resolution.
func relevant(name string) bool {
	base := filepath.Base(name)
	if base == deps.ManifestName || base == config.FileName {
		return true
	}
	if strings.Contains(base, apply.BackupSuffix) || strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".yaml" || ext == ".yml"
}

// watchDirs lists the directories whose files feed a resolution: the
// workspace root, the changeset directory and every package directory.
func (c *CLI) watchDirs(ctx context.Context, cfg config.Config) []string {
	dirs := []string{c.dir}
	csDir := cfg.ChangesetDir
	if !filepath.IsAbs(csDir) {
		csDir = filepath.Join(c.dir, csDir)
	}
	dirs = append(dirs, csDir)

	finder := deps.NewFinder(c.dir)
	finder.Patterns = cfg.Workspaces
	if infos, err := finder.Discover(ctx); err == nil {
		for _, info := range infos {
			dirs = append(dirs, filepath.Dir(info.Path))
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// watch calls run once, then again after every burst of relevant file
// changes, until ctx is cancelled. Errors from run are reported and do not
// stop the loop.
func (c *CLI) watch(ctx context.Context, cfg config.Config, run func(context.Context) error) error {
	logger := loggerFromContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range c.watchDirs(ctx, cfg) {
		if err := w.Add(dir); err != nil {
			logger.Debug("not watching", "dir", dir, "error", err)
			continue
		}
		logger.Debug("watching", "dir", dir)
	}

	rerun := func() {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			printError("%s", err)
		}
		printDetail("watching for changes, ctrl-c to stop")
	}
	rerun()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 || !relevant(ev.Name) {
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watchDebounce)
			fire = timer.C
		case <-fire:
			fire = nil
			printNewline()
			rerun()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
