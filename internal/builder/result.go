package builder

import "time"

// Result describes one completed build. It is not modified after Build returns.
type Result struct {
	artifact  string
	size      int64
	elapsed   time.Duration
	fromCache bool
	messages  []string
}

func newResult(artifact string, size int64, elapsed time.Duration, fromCache bool, messages []string) *Result {
	msgs := make([]string, len(messages))
	copy(msgs, messages)

	return &Result{
		artifact:  artifact,
		size:      size,
		elapsed:   elapsed,
		fromCache: fromCache,
		messages:  msgs,
	}
}

// Artifact is the absolute path of the bundle
func (r *Result) Artifact() string { return r.artifact }

// Size is the bundle size in bytes
func (r *Result) Size() int64 { return r.size }

// Elapsed is the build duration; zero when served from cache
func (r *Result) Elapsed() time.Duration { return r.elapsed }

// BuildTimeMs is Elapsed in whole milliseconds
func (r *Result) BuildTimeMs() int64 { return r.elapsed.Milliseconds() }

// FromCache reports whether the existing artifact was reused
func (r *Result) FromCache() bool { return r.fromCache }

// Messages returns the warnings and notes collected during the build
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}
