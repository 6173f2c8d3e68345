// Package quorum provides the tolerance-based quorum evaluator used to fuse
// sensor readings, and the fan-out helpers that read from or write to every
// sensor in parallel with per-sensor timeouts.
package quorum
