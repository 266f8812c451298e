package apply

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/observability"
	"github.com/matzehuels/stackbump/pkg/version"
)

// BackupSuffix separates a manifest path from the run ID in backup names.
const BackupSuffix = ".stackbump-backup-"

// Status is the outcome of one package in an apply run.
type Status string

const (
	StatusUpdated     Status = "updated"
	StatusWouldUpdate Status = "would-update"
	StatusSkipped     Status = "skipped"
	StatusRolledBack  Status = "rolled-back"
	StatusFailed      Status = "failed"
)

// PackageResult is the per-package detail of a run.
type PackageResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// FileChange is the content a manifest has before and after a run.
type FileChange struct {
	Path   string `json:"path"`
	Before []byte `json:"-"`
	After  []byte `json:"-"`
}

// Result summarises an apply run. On failure it is returned together with
// the error so callers can report what was rolled back.
type Result struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`
	// ModifiedFiles lists the manifests written, or in a dry run the ones a
	// real run would write, in update order. After a rollback it is empty.
	ModifiedFiles []string        `json:"modified_files"`
	Packages      []PackageResult `json:"packages"`
	// Changes carries the computed content for every modified file.
	Changes    []FileChange `json:"-"`
	RolledBack bool         `json:"rolled_back"`
	// Backups lists backup files left on disk.
	Backups []string `json:"backups,omitempty"`
}

// Counts returns how many packages ended in each status.
func (r *Result) Counts() map[Status]int {
	out := map[Status]int{}
	for _, p := range r.Packages {
		out[p.Status]++
	}
	return out
}

// Engine writes resolved versions into package manifests.
//
// Writes are all-or-nothing across one call: every manifest that will change
// is backed up first, files are replaced atomically one at a time, and any
// failure restores the originals. The engine takes no locks; callers must
// ensure a single writer per workspace.
type Engine struct {
	FS          FS
	KeepBackups bool
	Logger      *log.Logger

	newRunID func() string
}

// NewEngine creates an engine writing through fsys. A nil fsys means the
// real filesystem and a nil logger discards output.
func NewEngine(fsys FS, cfg config.ApplyConfig, logger *log.Logger) *Engine {
	e := &Engine{FS: fsys, KeepBackups: cfg.KeepBackups, Logger: logger}
	e.setDefaults()
	return e
}

// setDefaults fills the fields a struct literal may leave unset.
func (e *Engine) setDefaults() {
	if e.FS == nil {
		e.FS = OSFS{}
	}
	if e.Logger == nil {
		e.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}
}

// Apply writes res to disk, or with dryRun only computes what would change.
//
// A dry run reads manifests but never writes, and its ModifiedFiles are
// exactly the files a real run would touch. A real run fails with
// APPLY_FAILED when a backup or write fails or ctx is cancelled between
// files; every file written by the call is then restored from its backup.
func (e *Engine) Apply(ctx context.Context, res *version.VersionResolution, dryRun bool) (result *Result, err error) {
	e.setDefaults()
	start := time.Now()
	result = &Result{RunID: e.newRunID(), DryRun: dryRun, ModifiedFiles: []string{}}
	defer func() {
		observability.Apply().OnApplyComplete(ctx, len(result.ModifiedFiles), dryRun, time.Since(start), err)
	}()

	changes, err := e.plan(res, result)
	if err != nil {
		return result, err
	}
	observability.Apply().OnApplyStart(ctx, len(changes), dryRun)
	e.Logger.Debug("apply planned", "run", result.RunID, "files", len(changes), "dry_run", dryRun)

	if dryRun {
		for _, ch := range changes {
			result.ModifiedFiles = append(result.ModifiedFiles, ch.Path)
		}
		result.Changes = changes
		return result, nil
	}

	if err := e.backup(changes, result); err != nil {
		e.markChanged(result, changes, StatusFailed, err)
		return result, err
	}

	for i, ch := range changes {
		werr := ctx.Err()
		if werr == nil {
			werr = e.FS.WriteFile(ch.Path, ch.After)
		}
		if werr != nil {
			e.markChanged(result, changes[i:i+1], StatusFailed, werr)
			// The failed write was atomic, so only earlier files need restoring.
			rerr := e.rollback(ctx, changes[:i], result, werr)
			return result, errors.Wrap(errors.ErrCodeApplyFailed, stderrors.Join(werr, rerr), "write %s", ch.Path)
		}
		observability.Apply().OnFileWritten(ctx, ch.Path)
		e.Logger.Debug("wrote manifest", "path", ch.Path)
	}

	for _, ch := range changes {
		result.ModifiedFiles = append(result.ModifiedFiles, ch.Path)
	}
	result.Changes = changes
	e.markChanged(result, changes, StatusUpdated, nil)
	if !e.KeepBackups {
		e.removeBackups(result)
	}
	return result, nil
}

// plan reads every manifest and computes its new content. Several updates
// sharing a manifest are applied to it in order. Nothing is written.
func (e *Engine) plan(res *version.VersionResolution, result *Result) ([]FileChange, error) {
	var (
		changes []FileChange
		index   = map[string]int{}
	)
	for _, u := range res.Updates {
		pr := PackageResult{Name: u.Name, Path: u.Path, Status: StatusSkipped}
		if u.Path == "" {
			err := errors.New(errors.ErrCodeInvalidPath, "update for %s has no manifest path", u.Name)
			pr.Status, pr.Error = StatusFailed, err.Error()
			result.Packages = append(result.Packages, pr)
			return nil, err
		}

		i, seen := index[u.Path]
		var current []byte
		if seen {
			current = changes[i].After
		} else {
			data, err := e.FS.ReadFile(u.Path)
			if err != nil {
				pr.Status, pr.Error = StatusFailed, err.Error()
				result.Packages = append(result.Packages, pr)
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read manifest for %s", u.Name)
			}
			current = data
		}

		after, changed, err := EditManifest(u.Path, current, u)
		if err != nil {
			pr.Status, pr.Error = StatusFailed, err.Error()
			result.Packages = append(result.Packages, pr)
			return nil, err
		}
		if changed {
			pr.Status = StatusWouldUpdate
			if seen {
				changes[i].After = after
			} else {
				index[u.Path] = len(changes)
				changes = append(changes, FileChange{Path: u.Path, Before: current, After: after})
			}
		}
		result.Packages = append(result.Packages, pr)
	}
	return changes, nil
}

func (e *Engine) backupPath(path, runID string) string {
	return path + BackupSuffix + runID
}

// backup saves every original before anything is written. On failure the
// backups taken so far are removed.
func (e *Engine) backup(changes []FileChange, result *Result) error {
	for _, ch := range changes {
		bp := e.backupPath(ch.Path, result.RunID)
		if err := e.FS.WriteFile(bp, ch.Before); err != nil {
			e.removeBackups(result)
			return errors.Wrap(errors.ErrCodeApplyFailed, err, "back up %s", ch.Path)
		}
		result.Backups = append(result.Backups, bp)
	}
	return nil
}

// rollback restores written files from the originals held in memory. The
// on-disk backups are removed only when every restore succeeded; otherwise
// they stay listed in result.Backups and the restore errors are returned.
func (e *Engine) rollback(ctx context.Context, written []FileChange, result *Result, cause error) error {
	e.Logger.Warn("apply failed, restoring backups", "run", result.RunID, "files", len(written), "error", cause)

	var failed []error
	restored := 0
	for _, ch := range written {
		if err := e.FS.WriteFile(ch.Path, ch.Before); err != nil {
			failed = append(failed, fmt.Errorf("restore %s: %w", ch.Path, err))
			continue
		}
		restored++
	}
	result.RolledBack = true
	observability.Apply().OnRollback(ctx, restored, cause)
	e.markChanged(result, written, StatusRolledBack, cause)

	if len(failed) > 0 {
		err := stderrors.Join(failed...)
		e.Logger.Error("rollback incomplete, backups kept", "backups", result.Backups, "error", err)
		return err
	}
	e.removeBackups(result)
	return nil
}

func (e *Engine) removeBackups(result *Result) {
	var kept []string
	for _, bp := range result.Backups {
		if err := e.FS.Remove(bp); err != nil {
			e.Logger.Warn("remove backup", "path", bp, "error", err)
			kept = append(kept, bp)
		}
	}
	result.Backups = kept
}

// markChanged sets the status of every package whose manifest is in
// changes. Packages with nothing to write stay skipped.
func (e *Engine) markChanged(result *Result, changes []FileChange, status Status, cause error) {
	paths := make(map[string]bool, len(changes))
	for _, ch := range changes {
		paths[ch.Path] = true
	}
	for i := range result.Packages {
		p := &result.Packages[i]
		if p.Status == StatusSkipped {
			continue
		}
		if paths[p.Path] {
			p.Status = status
			if cause != nil {
				p.Error = cause.Error()
			}
		} else if status == StatusRolledBack && p.Status == StatusWouldUpdate {
			// Never attempted because an earlier file failed.
			p.Status = StatusSkipped
		}
	}
}
