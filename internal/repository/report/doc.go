// Package report persists build reports as YAML files next to the archive.
package report
