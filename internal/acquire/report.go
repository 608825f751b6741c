package acquire

import (
	"time"

	"github.com/google/uuid"
)

type (
	// Stage identifies how far an item progressed through the pipeline.
	Stage string

	// ItemResult is the outcome of acquiring a single item.
	ItemResult struct {
		Index      int
		URL        string
		Filename   string
		Path       string
		Stage      Stage
		Downloaded bool
		Persisted  bool
		Err        error
	}

	// Report summarises a run. Items are ordered as the collection (or
	// hold the single item).
	Report struct {
		RunID      uuid.UUID
		URL        string
		Kind       Kind
		AudioOnly  bool
		Table      string
		Items      []ItemResult
		StartedAt  time.Time
		FinishedAt time.Time
	}
)

const (
	StageExtract   Stage = "extract"
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
	StageSkipped   Stage = "skipped"
	StageDone      Stage = "done"
)

// Failures returns the items which reported an error.
func (r *Report) Failures() []ItemResult {
	var failures []ItemResult
	for _, item := range r.Items {
		if item.Err != nil {
			failures = append(failures, item)
		}
	}

	return failures
}

func (r *Report) Downloaded() int {
	return r.count(func(i ItemResult) bool { return i.Downloaded })
}

func (r *Report) Persisted() int {
	return r.count(func(i ItemResult) bool { return i.Persisted })
}

func (r *Report) count(fn func(ItemResult) bool) int {
	n := 0
	for _, item := range r.Items {
		if fn(item) {
			n++
		}
	}

	return n
}
