// Package metrics provides build metrics for sitebuilder.
//
// Components receive a Recorder and default to NoopRecorder, so metrics never
// need nil checks at call sites. `sitebuilder run` swaps in a PrometheusRecorder
// and serves it with HTTPHandler.
package metrics
