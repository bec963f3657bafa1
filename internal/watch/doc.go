// Package watch re-runs resolution whenever manifest files change. It
// monitors manifest files and directories, debounces rapid events, and
// reports how the outcome changed since the previous run.
package watch
