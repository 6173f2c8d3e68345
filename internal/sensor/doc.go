// Package sensor defines the Endpoint contract every sensor node exposes to
// the coordinator and clients, and the node-side Service that implements it
// over a storage.Store with a background Sampler.
package sensor
