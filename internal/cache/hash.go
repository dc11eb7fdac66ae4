package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Norgate-AV/extpack/internal/utils"
)

// SourceExtensions are the file types that can change the emitted bundle.
// Images, fonts and other assets are copied verbatim by the packager and are
// not part of the fingerprint.
var SourceExtensions = []string{
	".ts", ".tsx", ".mts", ".cts",
	".js", ".jsx", ".mjs", ".cjs",
	".json",
}

// Fingerprint computes a stable digest of every source file under root.
//
// The digest is built from:
//   - the SHA256 of each eligible file's content
//   - sorted, so filesystem enumeration order has no effect
//   - concatenated and hashed once more
//
// Files under excludedDir (absolute, or relative to root) are ignored so that
// writing the build output never invalidates the cache. An empty file set is
// not an error; it yields the digest of the empty sequence.
func Fingerprint(root, excludedDir string) (string, error) {
	return fingerprint(root, excludedDir, func(path string, _ fs.DirEntry) (string, error) {
		return HashFile(path)
	})
}

// fingerprint walks root and combines the digests produced by hash
func fingerprint(root, excludedDir string, hash func(path string, d fs.DirEntry) (string, error)) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}

	excluded := ""
	if excludedDir != "" {
		excluded = utils.ResolveUnder(absRoot, excludedDir)
	}

	var digests []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if excluded != "" && utils.IsWithin(path, excluded) {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || !utils.HasExtension(path, SourceExtensions) {
			return nil
		}

		sum, err := hash(path, d)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", path, err)
		}

		digests = append(digests, sum)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", absRoot, err)
	}

	return combine(digests), nil
}

// combine sorts the per-file digests and hashes their concatenation
func combine(digests []string) string {
	sorted := make([]string, len(digests))
	copy(sorted, digests)
	sort.Strings(sorted)

	h := sha256.New()
	for _, d := range sorted {
		h.Write([]byte(d))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// HashFile creates a hash of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
