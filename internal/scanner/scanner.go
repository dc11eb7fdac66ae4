// Package scanner audits extension sources for APIs that are unavailable when
// the extension runs on the web (browser worker) extension host.
//
// Matching is textual. It will miss aliased or computed imports and can flag
// an import inside a comment; the result is a warning list for a human, not a
// build gate.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/extpack/internal/utils"
)

const (
	// MaxDepth is the deepest directory level below the scan root that is read
	MaxDepth = 10

	// MaxFiles caps how many files one scan reads
	MaxFiles = 500
)

// ScanExtensions are the source types that are checked
var ScanExtensions = []string{".ts", ".js"}

// ErrNoRoot is returned when the directory holding the entry file is unreadable
var ErrNoRoot = errors.New("scan root not found")

// errLimit stops the walk once MaxFiles have been read
var errLimit = errors.New("file limit reached")

// Issue is one incompatible construct found in a file
type Issue struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	return i.File + ": " + i.Reason
}

// Check inspects the text of one file and reports what it finds
type Check func(file, src string) []Issue

// Scanner walks a source tree and applies its checks to every file
type Scanner struct {
	checks   []Check
	maxDepth int
	maxFiles int
}

// Option configures a Scanner
type Option func(*Scanner)

// WithChecks replaces the default check set
func WithChecks(checks ...Check) Option {
	return func(s *Scanner) {
		s.checks = checks
	}
}

// WithLimits overrides the depth and file-count ceilings
func WithLimits(maxDepth, maxFiles int) Option {
	return func(s *Scanner) {
		s.maxDepth = maxDepth
		s.maxFiles = maxFiles
	}
}

// New creates a Scanner with the default checks and limits
func New(opts ...Option) *Scanner {
	s := &Scanner{
		checks:   DefaultChecks(),
		maxDepth: MaxDepth,
		maxFiles: MaxFiles,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan checks the tree containing entryFile with the default scanner
func Scan(entryFile string) ([]Issue, error) {
	return New().Scan(entryFile)
}

// Scan walks the directory containing entryFile and returns every issue in
// walk order. Files that cannot be read are skipped.
func (s *Scanner) Scan(entryFile string) ([]Issue, error) {
	absEntry, err := filepath.Abs(entryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry file: %w", err)
	}

	root := filepath.Dir(absEntry)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoot, root)
	}

	issues := make([]Issue, 0)
	scanned := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}

			if skipDir(d.Name()) || depth(root, path) > s.maxDepth {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || !utils.HasExtension(path, ScanExtensions) || isDeclaration(path) {
			return nil
		}

		if scanned >= s.maxFiles {
			return errLimit
		}
		scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		issues = append(issues, s.check(path, string(data))...)
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return issues, err
	}

	return issues, nil
}

func (s *Scanner) check(file, src string) []Issue {
	var issues []Issue
	for _, c := range s.checks {
		issues = append(issues, c(file, src)...)
	}

	return issues
}

// skipDir excludes dependency and tooling directories
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

// isDeclaration reports .d.ts files, which carry types but no runtime imports
func isDeclaration(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".d.ts")
}

// depth is the number of directory levels from root down to dir
func depth(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 0
	}

	return strings.Count(rel, string(filepath.Separator)) + 1
}
