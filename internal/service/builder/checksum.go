package builder

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// fileChecksum returns the base64-encoded SHA-512 of a file.
func fileChecksum(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	//nolint:errcheck // Read-only handle.
	defer f.Close()

	hasher := sha512.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("calculate checksum of %s: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// checksumTree hashes every regular file under root, keyed by slash-separated relative path.
func checksumTree(fs afero.Fs, root string) (map[string]string, error) {
	checksums := make(map[string]string)

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		sum, err := fileChecksum(fs, path)
		if err != nil {
			return err
		}

		checksums[filepath.ToSlash(rel)] = sum

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checksum staging tree: %w", err)
	}

	return checksums, nil
}
