// Package version decides which workspace packages get which new version.
//
// # Pipeline
//
// [Resolver.Resolve] runs the whole computation for one changeset:
//
//  1. discover packages through a [deps.Discoverer]
//  2. build the [dag.Graph] (skipped when neither propagation nor cycle
//     detection is enabled)
//  3. detect cycles, failing only when fail_on_circular is set
//  4. apply the changeset bump with an [Engine]
//  5. propagate to dependents with a [Propagator]
//
// The result is a [VersionResolution]: direct updates first, then
// propagated updates in breadth-first order, plus any cycles found.
//
// # Propagation
//
// Each dependent reached from an updated package is bumped once by the
// configured propagation bump, and the specifier it declares for the changed
// dependency is rewritten with the same range operator (^1.0.0 becomes
// ^1.1.0). Skipped protocols such as workspace:* are left alone. A none
// propagation bump still records the dependent and rewrites its specifier;
// only its own version stays put.
//
// # Snapshots
//
// [SnapshotGenerator] renders templates such as "{version}-{branch}.{commit}"
// for ephemeral builds, and [ApplySnapshot] moves a whole resolution onto
// snapshot versions.
package version
