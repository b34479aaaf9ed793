package report

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/pavr2-macos-builder/internal/domain/installer"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(afero.NewMemMapFs(), "/out/missing.yaml")

	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad stores a report and reads the same values back.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	repo := NewFileRepository(fs, "/out/pavr2-macos-files.yaml")
	want := &installer.Report{
		Version:         "1.2.3",
		ConfigName:      "macos",
		PackageFilename: "pololu-usb-avr-programmer-v2-1.2.3-macos.pkg",
		BuilderVersion:  "0.1.0",
		BuiltAt:         time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC),
		Archive:         "/out/pavr2-macos-files.tar",
		ArchiveChecksum: "abc=",
		Files:           map[string]string{"build.sh": "def="},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	raw, err := afero.ReadFile(fs, repo.Path())
	require.NoError(t, err)
	require.Contains(t, string(raw), "package: pololu-usb-avr-programmer-v2-1.2.3-macos.pkg")
}
