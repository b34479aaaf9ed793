package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/pavr2-macos-builder/internal/domain/installer"
	"github.com/oshokin/pavr2-macos-builder/internal/logger"
)

// errSymlinksUnsupported is returned when the staging filesystem cannot create links.
var errSymlinksUnsupported = errors.New("filesystem does not support symlinks")

const (
	ownerWrite   os.FileMode = 0o200
	ownerExecute os.FileMode = 0o100
)

// createTree creates every layout directory. Existing content is left in place.
func (b *builder) createTree() error {
	for _, dir := range b.layout.Directories() {
		if err := b.fs.MkdirAll(b.staged(dir), dirPermissions); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}

// copyInputs copies the payload executables, the license and the icon into the bundle.
func (b *builder) copyInputs(ctx context.Context) error {
	pattern := filepath.Join(b.cfg.PayloadDir, "bin", "*")

	matches, err := afero.Glob(b.fs, pattern)
	if err != nil {
		return fmt.Errorf("list payload executables: %w", err)
	}

	copied := 0

	for _, src := range matches {
		name := filepath.Base(src)
		if strings.HasPrefix(name, ".") {
			continue
		}

		if err = copyTree(b.fs, src, filepath.Join(b.staged(b.layout.BinDir), name)); err != nil {
			return err
		}

		copied++
	}

	if copied == 0 {
		logger.WarnKV(ctx, "No payload executables found", "pattern", pattern)
	} else {
		logger.InfoKV(ctx, "Copied payload executables", "count", copied)
	}

	if err = copyFile(b.fs, b.cfg.LicenseFile, b.staged(b.layout.License)); err != nil {
		return err
	}

	icon := filepath.Join(b.cfg.SrcDir, "images", installer.IconFilename)

	return copyFile(b.fs, icon, b.staged(b.layout.Icon))
}

// writeArtifacts stores rendered files in the staging tree.
func (b *builder) writeArtifacts(ctx context.Context, artifacts []installer.Artifact) error {
	for _, a := range artifacts {
		if err := afero.WriteFile(b.fs, b.staged(a.Path), a.Contents, filePermissions); err != nil {
			return fmt.Errorf("write %s: %w", a.Path, err)
		}

		logger.DebugKV(ctx, "Rendered artifact", "path", a.Path, "bytes", len(a.Contents))
	}

	return nil
}

// fixPermissions grants the owner write access across the tree, then marks executable artifacts.
func (b *builder) fixPermissions(artifacts []installer.Artifact) error {
	err := afero.Walk(b.fs, b.stagingDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		return b.fs.Chmod(path, info.Mode().Perm()|ownerWrite)
	})
	if err != nil {
		return fmt.Errorf("make staging tree writable: %w", err)
	}

	for _, a := range artifacts {
		if !a.Executable {
			continue
		}

		path := b.staged(a.Path)

		info, err := b.fs.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", a.Path, err)
		}

		if err = b.fs.Chmod(path, info.Mode().Perm()|ownerExecute); err != nil {
			return fmt.Errorf("make %s executable: %w", a.Path, err)
		}
	}

	return nil
}

// copyTree copies a file or a directory recursively, keeping permission bits.
// src itself is dereferenced; symlinks found below it are recreated as links.
func copyTree(fs afero.Fs, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.IsDir() {
		return copyFile(fs, src, dst)
	}

	// Walk lstats its root; a trailing separator makes a linked root resolve to its directory.
	root := src + string(filepath.Separator)

	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if info.Mode()&os.ModeSymlink != 0 {
			return copySymlink(fs, path, target)
		}

		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode().Perm()|ownerWrite)
		}

		return copyFile(fs, path, target)
	})
}

// copySymlink recreates the link at src as dst with the same, unresolved target.
func copySymlink(fs afero.Fs, src, dst string) error {
	linker, ok := fs.(afero.Symlinker)
	if !ok {
		return fmt.Errorf("copy %s: %w", src, errSymlinksUnsupported)
	}

	target, err := linker.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("read link %s: %w", src, err)
	}

	// A rerun finds the link from the previous build in place.
	if err = fs.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}

	if err = linker.SymlinkIfPossible(target, dst); err != nil {
		return fmt.Errorf("link %s: %w", dst, err)
	}

	return nil
}

// copyFile copies a regular file, keeping its permission bits.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	//nolint:errcheck // Read-only handle.
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if info.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()|ownerWrite)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	// OpenFile keeps the mode of an existing file, so a rerun must apply it explicitly.
	return fs.Chmod(dst, info.Mode().Perm()|ownerWrite)
}
