// Package metrics records build metrics.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default; PrometheusRecorder is installed by the development server,
// which exposes it on /metrics via HTTPHandler.
//
//	rec := metrics.NoopRecorder{}
//	rec.ObserveStageDuration("discover", time.Since(start))
package metrics
