// Package client implements the consensus-reading loop: wait for any
// in-flight reconciliation, read every sensor, accept the inlier mean when
// enough readings agree, otherwise ask the coordinator to reconcile and
// report the mean of a fresh read.
package client
