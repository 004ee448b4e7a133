// internal/models/job.go
package models

import "time"

// RowMap is one input product entry from the imported spreadsheet; keys are
// free-form column headers.
type RowMap map[string]interface{}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type ResultStatus string

const (
	ResultStatusSearching ResultStatus = "searching"
	ResultStatusFound     ResultStatus = "found"
	ResultStatusNotFound  ResultStatus = "not_found"
	ResultStatusError     ResultStatus = "error"
)

// Progress is persisted as JSON on the job record and published after every
// row so readers can poll between row completions.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// MatcherJob is the unit of work: one spreadsheet import matched against one
// set of providers. Once Completed or Failed the record is read-only.
type MatcherJob struct {
	ID        string         `json:"id"`
	SheetData []RowMap       `json:"sheetData"`
	Providers []string       `json:"providers"`
	Criteria  SearchCriteria `json:"criteria"`
	Status    JobStatus      `json:"status"`
	Progress  Progress       `json:"progress"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// MatchResult is the per-row outcome. It is created in Searching (or Error)
// state the moment the row is dequeued and finalized once every provider for
// the row has responded.
type MatchResult struct {
	ID              string           `json:"id"`
	JobID           string           `json:"jobId"`
	RowIndex        int              `json:"rowIndex"`
	OriginalProduct RowMap           `json:"originalProduct"`
	Matches         []ProviderResult `json:"matches"`
	BestMatchID     string           `json:"bestMatchId,omitempty"`
	Status          ResultStatus     `json:"status"`
	Error           string           `json:"error,omitempty"`

	SKU                string   `json:"sku,omitempty"`
	LandedCostValue    *float64 `json:"landedCostValue,omitempty"`
	LandedCostCurrency string   `json:"landedCostCurrency,omitempty"`
	ETADays            *int     `json:"etaDays,omitempty"`
	ReliabilityScore   *int     `json:"reliabilityScore,omitempty"`
	RankingScore       *int     `json:"rankingScore,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
