// Package version exposes build metadata of the builder binary itself.
//
// Version, Commit and BuildTime are injected via ldflags. The builder version
// is unrelated to the packaged software version read from version.txt; it is
// recorded in the build report so an archive can be traced to the tool that made it.
package version
