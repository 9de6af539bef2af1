package model

const (
	ItemStatusQueued     = "queued"
	ItemStatusProcessing = "processing"
	ItemStatusDone       = "done"
	ItemStatusFailed     = "failed"
)

const (
	SummaryLengthShort    = "short"
	SummaryLengthStandard = "standard"
)

// IngestOptions are the per-job submission options. The field set is small
// and fixed, so it is a plain struct rather than a free-form map.
type IngestOptions struct {
	SummaryLength    string `json:"summary_length"`
	AutoCategory     bool   `json:"auto_category"`
	StoreFullContent bool   `json:"store_full_content"`
}

func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		SummaryLength:    SummaryLengthStandard,
		AutoCategory:     true,
		StoreFullContent: true,
	}
}

// JobCounts is a cached aggregate over item statuses. Items are ground
// truth; counts are recomputed from them after every item transition.
type JobCounts struct {
	Queued     int `json:"queued" db:"queued"`
	Processing int `json:"processing" db:"processing"`
	Done       int `json:"done" db:"done"`
	Failed     int `json:"failed" db:"failed"`
}

func (c JobCounts) Total() int {
	return c.Queued + c.Processing + c.Done + c.Failed
}

type IngestJob struct {
	ID             string        `json:"id"`
	RequestedCount int           `json:"requested_count"`
	Counts         JobCounts     `json:"counts"`
	Options        IngestOptions `json:"options"`
	Ctime          int64         `json:"ctime"`
	Mtime          int64         `json:"mtime"`
}

type IngestJobItem struct {
	ID           string `json:"id" db:"id"`
	JobID        string `json:"job_id" db:"job_id"`
	Position     int    `json:"position" db:"position"`
	SourceURL    string `json:"source_url" db:"source_url"`
	Status       string `json:"status" db:"status"`
	NoteID       string `json:"note_id,omitempty" db:"note_id"`
	ErrorCode    string `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
	Ctime        int64  `json:"ctime" db:"ctime"`
	Mtime        int64  `json:"mtime" db:"mtime"`
}
