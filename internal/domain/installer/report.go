package installer

import "time"

// Report summarizes a finished staging build.
type Report struct {
	// Version is the packaged software version read from version.txt.
	Version string
	// ConfigName is the build configuration name.
	ConfigName string
	// PackageFilename is the product package that build.sh will produce.
	PackageFilename string
	// BuilderVersion identifies the tool that produced the archive.
	BuilderVersion string
	// BuiltAt is the build time.
	BuiltAt time.Time
	// Archive is the path of the tar archive.
	Archive string
	// ArchiveChecksum is the checksum of the tar archive.
	ArchiveChecksum string
	// Files maps staged paths (relative to the staging directory) to checksums.
	Files map[string]string
}
