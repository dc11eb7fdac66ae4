package cache

import (
	"fmt"
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize is the number of file digests a Memo keeps
const DefaultMemoSize = 4096

// racyWindow is how recent a modification must be for the digest not to be
// remembered. Filesystems with coarse timestamps can report the same mtime
// for two writes inside it.
const racyWindow = 2 * time.Second

type memoEntry struct {
	size    int64
	modTime time.Time
	digest  string
}

// Memo remembers file digests between fingerprints of the same tree. A file
// is rehashed when its size or modification time changes.
type Memo struct {
	digests *lru.Cache[string, memoEntry]
	now     func() time.Time
}

// NewMemo creates a Memo holding up to size digests
func NewMemo(size int) (*Memo, error) {
	digests, err := lru.New[string, memoEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest cache: %w", err)
	}

	return &Memo{digests: digests, now: time.Now}, nil
}

// Fingerprint is Fingerprint with digests reused from earlier calls
func (m *Memo) Fingerprint(root, excludedDir string) (string, error) {
	return fingerprint(root, excludedDir, m.hash)
}

// Len reports how many digests are remembered
func (m *Memo) Len() int {
	return m.digests.Len()
}

func (m *Memo) hash(path string, d fs.DirEntry) (string, error) {
	info, err := d.Info()
	if err != nil {
		return "", err
	}

	if e, ok := m.digests.Get(path); ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		return e.digest, nil
	}

	digest, err := HashFile(path)
	if err != nil {
		return "", err
	}

	if m.now().Sub(info.ModTime()) > racyWindow {
		m.digests.Add(path, memoEntry{size: info.Size(), modTime: info.ModTime(), digest: digest})
	} else {
		m.digests.Remove(path)
	}

	return digest, nil
}
