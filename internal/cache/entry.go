package cache

import "time"

// Entry is the value kept per output directory by the bolt backend
type Entry struct {
	// Fingerprint of the project at the time the artifact was written
	Fingerprint string `json:"fingerprint"`

	// ProjectRoot is the absolute project directory
	ProjectRoot string `json:"project_root"`

	// OutDir is the absolute output directory the entry is keyed by
	OutDir string `json:"out_dir"`

	// Timestamp when this entry was written
	Timestamp time.Time `json:"timestamp"`
}
