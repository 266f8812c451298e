// Package deps models workspace packages and the dependency specifiers they
// declare.
//
// # Overview
//
// A workspace is a set of [PackageInfo] records, one per package.json. Each
// record carries the raw dependency declarations of the four manifest
// sections, keyed by [DependencyType]:
//
//   - [Runtime]: "dependencies"
//   - [Dev]: "devDependencies"
//   - [Peer]: "peerDependencies"
//   - [Optional]: "optionalDependencies"
//
// # Discovery
//
// [Finder] implements [Discoverer] for npm/pnpm/yarn style workspaces. It
// reads the "workspaces" globs from the root manifest (defaulting to
// "packages/*") and parses every matched manifest concurrently:
//
//	pkgs, err := deps.NewFinder("/path/to/repo").Discover(ctx)
//
// [Static] wraps an already-known package list and is mostly useful in
// tests.
//
// # Protocols
//
// [DetectProtocol] classifies a specifier into one of three closed cases:
//
//   - [Workspace]: "workspace:*", "workspace:^1.2.0"
//   - [Local]: "file:../core", "link:../core", "portal:../core", "../core"
//   - [Semver]: anything else, e.g. "^1.2.3" or "latest"
//
// [RewriteSpec] points a specifier at a new version while keeping its
// protocol and range operator, so "^1.0.0" becomes "^1.1.0". Protocols listed
// in the skip list ([DefaultSkipProtocols]) are never rewritten.
package deps
