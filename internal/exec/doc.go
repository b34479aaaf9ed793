// Package exec runs external commands behind a stub-friendly interface.
//
// The builder shells out to the archiver only; tests replace RealRunner with a
// recording stub to assert arguments and simulate failing exit codes.
package exec
