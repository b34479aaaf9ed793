package installer

import (
	"fmt"
	"path"
	"time"
)

const (
	// StagingDirName is the directory assembled by the builder and archived as a whole.
	StagingDirName = "pavr2-macos-files"
	// AppName is the display name and the bundle directory name.
	AppName = "Pololu USB AVR Programmer v2"
	// PackageID is the product identifier; components append ".app" and ".path".
	PackageID = "com.pololu.pavr2"
	// GUIExecutable is the bundle executable launched by Finder.
	GUIExecutable = "pavr2gui"
	// CLIExecutable is the command-line utility exposed through the PATH entry.
	CLIExecutable = "pavr2cmd"
	// IconFilename is the icon resource name inside Contents/Resources.
	IconFilename = "app.icns"
	// PathEntryFilename is the file installed into /etc/paths.d.
	PathEntryFilename = "99-pololu-avr2"
	// MinimumOSVersion gates installation on older macOS releases.
	MinimumOSVersion = "10.11"
	// Vendor appears in the copyright notice.
	Vendor = "Pololu Corporation"

	// ApplicationsDir is where the app component is installed.
	ApplicationsDir = "/Applications"
	// PathsDir is where the PATH component is installed.
	PathsDir = "/etc/paths.d"

	packageFilePrefix = "pololu-usb-avr-programmer-v2"
)

// Layout lists slash-separated paths relative to the staging directory.
// pkgbuild consumes the release and path roots as they are, so the layout mirrors the installed tree.
type Layout struct {
	ReleaseDir   string
	AppDir       string
	ContentsDir  string
	BinDir       string
	AppResDir    string
	InfoPlist    string
	License      string
	Icon         string
	PathDir      string
	PathEntry    string
	ResDir       string
	Welcome      string
	EmptyDir     string
	Distribution string
	BuildScript  string
}

// DefaultLayout returns the staging layout expected by the generated build script.
func DefaultLayout() Layout {
	var (
		releaseDir  = "release"
		appDir      = path.Join(releaseDir, AppName+".app")
		contentsDir = path.Join(appDir, "Contents")
		appResDir   = path.Join(contentsDir, "Resources")
		pathDir     = "path"
		resDir      = "resources"
	)

	return Layout{
		ReleaseDir:   releaseDir,
		AppDir:       appDir,
		ContentsDir:  contentsDir,
		BinDir:       path.Join(contentsDir, "MacOS"),
		AppResDir:    appResDir,
		InfoPlist:    path.Join(contentsDir, "Info.plist"),
		License:      path.Join(contentsDir, "LICENSE.html"),
		Icon:         path.Join(appResDir, IconFilename),
		PathDir:      pathDir,
		PathEntry:    path.Join(pathDir, PathEntryFilename),
		ResDir:       resDir,
		Welcome:      path.Join(resDir, "welcome.html"),
		EmptyDir:     "empty",
		Distribution: "distribution.xml",
		BuildScript:  "build.sh",
	}
}

// Directories returns every directory of the layout, parents before children.
func (l Layout) Directories() []string {
	return []string{
		l.ReleaseDir,
		l.AppDir,
		l.ContentsDir,
		l.BinDir,
		l.AppResDir,
		l.PathDir,
		l.ResDir,
		l.EmptyDir,
	}
}

// PackageFilename returns the name of the product package built by build.sh.
func PackageFilename(version, configName string) string {
	return fmt.Sprintf("%s-%s-%s.pkg", packageFilePrefix, version, configName)
}

// Params are the values interpolated into the rendered artifacts.
type Params struct {
	AppName          string
	PackageID        string
	AppPackageID     string
	PathPackageID    string
	GUIExecutable    string
	CLIExecutable    string
	IconFilename     string
	Version          string
	CopyrightYear    int
	Vendor           string
	MinimumOSVersion string
	InstalledBinDir  string
	PackageFilename  string
	ApplicationsDir  string
	PathsDir         string
	Layout           Layout
}

// NewParams builds template parameters for a version, a configuration name and a build time.
func NewParams(version, configName string, now time.Time) Params {
	layout := DefaultLayout()

	return Params{
		AppName:          AppName,
		PackageID:        PackageID,
		AppPackageID:     PackageID + ".app",
		PathPackageID:    PackageID + ".path",
		GUIExecutable:    GUIExecutable,
		CLIExecutable:    CLIExecutable,
		IconFilename:     IconFilename,
		Version:          version,
		CopyrightYear:    now.Year(),
		Vendor:           Vendor,
		MinimumOSVersion: MinimumOSVersion,
		InstalledBinDir:  path.Join(ApplicationsDir, AppName+".app", "Contents", "MacOS"),
		PackageFilename:  PackageFilename(version, configName),
		ApplicationsDir:  ApplicationsDir,
		PathsDir:         PathsDir,
		Layout:           layout,
	}
}
