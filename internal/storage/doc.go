// Package storage provides the per-sensor time-series store behind a sensor
// endpoint. Readings are append-only; reconciled values are stored alongside
// sampled ones and flagged so later reads can tell them apart.
package storage
