package domain

import "time"

// RunStatus is the outcome of processing one source.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// CollectionRunLog is appended once per (source, run).
type CollectionRunLog struct {
	ID            string
	SourceID      string
	Status        RunStatus
	ArticlesCount int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// SourceResult summarizes one source inside a RunResult.
type SourceResult struct {
	SourceID   string    `json:"sourceId"`
	SourceName string    `json:"sourceName"`
	Status     RunStatus `json:"status"`
	Count      int       `json:"count"`
	Error      string    `json:"error,omitempty"`
}

// RunResult is returned by a collection run. It is always populated, even on partial failure.
type RunResult struct {
	SourcesAttempted int            `json:"sourcesAttempted"`
	SourcesSucceeded int            `json:"sourcesSucceeded"`
	ArticlesInserted int            `json:"articlesInserted"`
	PerSource        []SourceResult `json:"perSourceResults"`
	StartedAt        time.Time      `json:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"`
}
