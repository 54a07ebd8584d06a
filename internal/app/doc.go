// Package app wires configuration, logging, telemetry and the pipeline
// runner into one Application used by every command of the smartsales
// binary. Batch commands call Runner directly; serve and schedule run until
// their context is cancelled.
package app
