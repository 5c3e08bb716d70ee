// Package build runs the site build.
//
// A Builder owns the extension registry, the source cache, the renderer and
// the task executor. Build walks the configured directories, constructs a
// fresh site.Site and drives it through the fixed stage sequence:
//
//	setup → read → generate → convert → render → cleanup → write
//
// Each stage calls the matching extension hooks. A failing stage aborts the
// build with a *StageError; the previously published site stays in place.
// A successful build publishes its Site through the Builder's site.Holder,
// persists build-report.json in the work directory and emits a build event.
package build
