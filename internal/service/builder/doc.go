// Package builder stages the macOS installer inputs and archives them.
//
// A run resolves the build configuration, reads the payload version, creates
// the staging tree, copies executables, license and icon, renders the
// installer metadata and finally hands the tree to tar. Every failure aborts
// the run; partial output is left for the calling pipeline to discard.
package builder
