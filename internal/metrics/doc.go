// Package metrics provides the observability hooks of the asset pipeline.
//
// Components receive a Recorder through their options and fall back to
// NoopRecorder when none is given:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	b := bundler.New(bundler.Options{Recorder: recorder, ...})
//
// The dev server exposes the registry on /metrics via HTTPHandler.
package metrics
