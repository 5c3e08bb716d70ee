// Package metrics records build, cache and preview metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics are
// collected without nil checks:
//
//	builder := build.NewBuilder(cfg, opts...)            // NoopRecorder
//	builder := build.NewBuilder(cfg, build.WithRecorder(
//	    metrics.NewPrometheusRecorder(reg)))             // Prometheus
//
// HTTPHandler exposes a registry for scraping; the preview server mounts it
// at the configured metrics path.
package metrics
