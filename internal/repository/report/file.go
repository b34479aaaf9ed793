package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/pavr2-macos-builder/internal/domain/installer"
)

// Repository defines persistence operations for build reports.
type Repository interface {
	Load(ctx context.Context) (*installer.Report, error)
	Save(ctx context.Context, report *installer.Report) error
}

// DefaultFilePermissions is used for written reports.
const DefaultFilePermissions os.FileMode = 0o644

// ErrNotFound is returned when the report file does not exist.
var ErrNotFound = errors.New("report not found")

// FileRepository reads and writes a single YAML report.
type FileRepository struct {
	fs   afero.Fs
	path string
}

// reportFile is the on-disk representation.
type reportFile struct {
	Version         string            `yaml:"version"`
	ConfigName      string            `yaml:"config_name"`
	PackageFilename string            `yaml:"package"`
	BuilderVersion  string            `yaml:"builder_version"`
	BuiltAt         time.Time         `yaml:"built_at"`
	Archive         string            `yaml:"archive"`
	ArchiveChecksum string            `yaml:"archive_checksum"`
	Files           map[string]string `yaml:"files"`
}

// NewFileRepository creates a repository bound to path on fs.
func NewFileRepository(fs afero.Fs, path string) *FileRepository {
	return &FileRepository{
		fs:   fs,
		path: filepath.Clean(path),
	}
}

// Path returns the report location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*installer.Report, error) {
	contents, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report: %w", err)
	}

	var file reportFile
	if err = yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	return fromFile(&file), nil
}

// Save overwrites the report on disk.
func (r *FileRepository) Save(_ context.Context, report *installer.Report) error {
	data, err := yaml.Marshal(toFile(report))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = afero.WriteFile(r.fs, r.path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func fromFile(file *reportFile) *installer.Report {
	return &installer.Report{
		Version:         file.Version,
		ConfigName:      file.ConfigName,
		PackageFilename: file.PackageFilename,
		BuilderVersion:  file.BuilderVersion,
		BuiltAt:         file.BuiltAt,
		Archive:         file.Archive,
		ArchiveChecksum: file.ArchiveChecksum,
		Files:           file.Files,
	}
}

func toFile(report *installer.Report) *reportFile {
	return &reportFile{
		Version:         report.Version,
		ConfigName:      report.ConfigName,
		PackageFilename: report.PackageFilename,
		BuilderVersion:  report.BuilderVersion,
		BuiltAt:         report.BuiltAt.UTC(),
		Archive:         report.Archive,
		ArchiveChecksum: report.ArchiveChecksum,
		Files:           report.Files,
	}
}
