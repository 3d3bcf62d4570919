// Package metrics owns the exporter's gauge registry and projects decoded
// router snapshots onto it.
//
// Registry wraps a dedicated prometheus.Registry holding one GaugeVec per
// Series; the exposition handler reads it concurrently while the Projector,
// its single writer, observes and resets label sets.
package metrics
