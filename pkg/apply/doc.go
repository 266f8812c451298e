// Package apply writes a [version.VersionResolution] into package.json
// manifests.
//
// Edits are surgical: only the "version" string and the rewritten
// dependency specifiers change, so indentation, key order and unrelated
// fields survive untouched (see [EditManifest]).
//
// A real run is all-or-nothing. The [Engine] computes every new manifest
// first, backs up each file it is about to change as
// <manifest>.stackbump-backup-<run id>, then replaces files one by one
// through [FS.WriteFile], which must be atomic. When a write fails or the
// context is cancelled, every file already written is restored and the call
// returns APPLY_FAILED along with a [Result] describing what happened.
//
// Dry runs perform the same planning without writing, so their
// ModifiedFiles match what a real run would touch.
package apply
