// Package manager owns the session lifecycle for a single loaded model. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig, ModelConfig and package defaults.
//   - types.go: State and its numeric gauge form.
//   - errors.go: sentinel and typed errors (IsUsageError, LoadError).
//   - load.go: Load with reload semantics and preflight path checks.
//   - generate.go: generation admission and the single in-flight run.
//   - release.go: Release with bounded drain and deferred close.
//   - reset.go: ResetContext (explicit key-value cache clear).
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - status_report.go: Status reporting.
//
// State machine: Unloaded -> Loaded (Load) -> Generating (Generate) -> Loaded.
// Release from any state ends in Unloaded. At most one generation runs at a
// time; a second Generate fails immediately with ErrAlreadyGenerating.
package manager
