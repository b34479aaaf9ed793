package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/oshokin/pavr2-macos-builder/internal/config"
	"github.com/oshokin/pavr2-macos-builder/internal/domain/installer"
	"github.com/oshokin/pavr2-macos-builder/internal/exec"
	"github.com/oshokin/pavr2-macos-builder/internal/logger"
	"github.com/oshokin/pavr2-macos-builder/internal/repository/report"
	"github.com/oshokin/pavr2-macos-builder/internal/version"
)

// Options contains inputs for the builder entry point.
type Options struct {
	// ConfigPath is an optional YAML file with build settings; the environment overrides it.
	ConfigPath string
	// WorkDir receives the staging directory and the build marker. Defaults to the current directory.
	WorkDir string
	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup config.LookupFunc
	// Fs is the filesystem to stage on. Defaults to the OS filesystem.
	Fs afero.Fs
	// Runner executes the archiver. Defaults to exec.RealRunner.
	Runner exec.CommandRunner
	// Now supplies the build time (copyright year, report timestamp). Defaults to time.Now.
	Now func() time.Time
}

const (
	// VersionFilename is read from the payload directory.
	VersionFilename = "version.txt"
	// ArchiveName is the tar file written to the output directory.
	ArchiveName = installer.StagingDirName + ".tar"
	// ReportName is the build report written next to the archive.
	ReportName = installer.StagingDirName + ".yaml"
	// MarkerName guards the working directory against concurrent builds.
	MarkerName = installer.StagingDirName + ".lock"

	archiver = "tar"

	dirPermissions  os.FileMode = 0o755
	filePermissions os.FileMode = 0o644
)

var (
	// ErrArchiveFailed is returned when tar exits with a non-zero status.
	ErrArchiveFailed = errors.New("tar failed")
	// errEmptyVersion is returned when version.txt holds nothing but a line break.
	errEmptyVersion = errors.New("version is empty")
)

// builder holds the resolved inputs of one run.
type builder struct {
	// cfg holds the validated configuration with directories anchored at workDir.
	cfg *config.Config
	// fs is the filesystem inputs are read from and the staging tree is written to.
	fs afero.Fs
	// runner executes the archiver.
	runner exec.CommandRunner
	// workDir is the absolute directory holding the staging tree and the marker.
	workDir string
	// now is the build time used for the copyright year and the report.
	now time.Time
	// version is the packaged software version read from version.txt.
	version string
	// layout lists the staging tree paths.
	layout installer.Layout
}

// Run executes the staging workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pavr2-macos-builder")

	b, err := newBuilder(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize builder: %w", err)
	}

	m, err := acquireMarker(ctx, b.fs, filepath.Join(b.workDir, MarkerName))
	if err != nil {
		return err
	}

	defer m.release(ctx)

	if err = b.Run(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	logger.InfoKV(ctx, "Installer files staged and archived",
		"archive", b.archivePath(),
		"package", installer.PackageFilename(b.version, b.cfg.ConfigName))

	return nil
}

// newBuilder resolves options, configuration and the payload version without touching the staging tree.
func newBuilder(ctx context.Context, opts *Options) (*builder, error) {
	if opts == nil {
		opts = new(Options)
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cfg, err := config.Resolve(fs, opts.ConfigPath, opts.Lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	if err = installer.ValidateConfigName(cfg.ConfigName); err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	// tar runs inside workDir, so every path handed to it must be absolute.
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	b := &builder{
		cfg:     absConfig(cfg, workDir),
		fs:      fs,
		runner:  opts.Runner,
		workDir: workDir,
		now:     time.Now(),
		layout:  installer.DefaultLayout(),
	}

	if b.runner == nil {
		b.runner = exec.NewRealRunner()
	}

	if opts.Now != nil {
		b.now = opts.Now()
	}

	if b.version, err = b.readVersion(); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Resolved build configuration",
		"config_name", b.cfg.ConfigName,
		"version", b.version,
		"payload", b.cfg.PayloadDir,
		"out", b.cfg.OutDir)

	return b, nil
}

// Run stages, renders and archives.
func (b *builder) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Creating staging tree", "path", b.stagingDir())

	if err := b.createTree(); err != nil {
		return err
	}

	if err := b.copyInputs(ctx); err != nil {
		return err
	}

	artifacts, err := installer.Render(installer.NewParams(b.version, b.cfg.ConfigName, b.now))
	if err != nil {
		return err
	}

	if err = b.writeArtifacts(ctx, artifacts); err != nil {
		return err
	}

	if err = b.fs.MkdirAll(b.cfg.OutDir, dirPermissions); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err = b.fixPermissions(artifacts); err != nil {
		return err
	}

	if err = b.archive(ctx); err != nil {
		return err
	}

	return b.saveReport(ctx)
}

// readVersion returns the contents of <payload>/version.txt without its trailing line break.
func (b *builder) readVersion() (string, error) {
	path := filepath.Join(b.cfg.PayloadDir, VersionFilename)

	contents, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}

	v := strings.TrimRight(string(contents), "\r\n")
	if v == "" {
		return "", fmt.Errorf("%s: %w", path, errEmptyVersion)
	}

	if err = installer.ValidateVersion(v); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	return v, nil
}

// archive runs tar from the working directory so the archive holds a single top-level staging directory.
func (b *builder) archive(ctx context.Context) error {
	args := []string{"cfv", b.archivePath(), installer.StagingDirName}

	logger.InfoKV(ctx, "Archiving staging tree", "archive", b.archivePath())

	result, err := b.runner.Run(ctx, archiver, args, exec.RunOpts{
		Dir:  b.workDir,
		Path: b.cfg.SearchPath,
	})
	if err != nil {
		return fmt.Errorf("archive staging tree: %w", err)
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "Archiver reported a failure", "exit_code", result.ExitCode, "stderr", result.Stderr)

		return fmt.Errorf("%w: error %d", ErrArchiveFailed, result.ExitCode)
	}

	// tar cv lists members on stdout or stderr depending on the implementation.
	logger.DebugKV(ctx, "Archiver output", "stdout", result.Stdout, "stderr", result.Stderr)

	return nil
}

// saveReport records checksums of the staged files and of the archive.
func (b *builder) saveReport(ctx context.Context) error {
	files, err := checksumTree(b.fs, b.stagingDir())
	if err != nil {
		return err
	}

	archiveChecksum, err := fileChecksum(b.fs, b.archivePath())
	if err != nil {
		return err
	}

	repo := report.NewFileRepository(b.fs, filepath.Join(b.cfg.OutDir, ReportName))
	r := &installer.Report{
		Version:         b.version,
		ConfigName:      b.cfg.ConfigName,
		PackageFilename: installer.PackageFilename(b.version, b.cfg.ConfigName),
		BuilderVersion:  version.Short(),
		BuiltAt:         b.now,
		Archive:         b.archivePath(),
		ArchiveChecksum: archiveChecksum,
		Files:           files,
	}

	if err = repo.Save(ctx, r); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saved build report", "path", repo.Path(), "files", len(files))

	return nil
}

func (b *builder) stagingDir() string {
	return filepath.Join(b.workDir, installer.StagingDirName)
}

// staged converts a slash-separated layout path into a path inside the staging directory.
func (b *builder) staged(rel string) string {
	return filepath.Join(b.stagingDir(), filepath.FromSlash(rel))
}

func (b *builder) archivePath() string {
	return filepath.Join(b.cfg.OutDir, ArchiveName)
}

// absConfig anchors relative directories at the working directory.
func absConfig(cfg *config.Config, workDir string) *config.Config {
	resolved := *cfg

	for _, p := range []*string{&resolved.OutDir, &resolved.PayloadDir, &resolved.SrcDir, &resolved.LicenseFile} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(workDir, *p)
		}
	}

	return &resolved
}
