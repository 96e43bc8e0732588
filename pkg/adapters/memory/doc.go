// Package memory provides in-process adapters: a suite Runner for the local
// run, a Loader that serves child pages from Go functions and an event Recorder.
package memory
