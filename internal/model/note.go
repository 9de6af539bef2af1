package model

const (
	NoteStatusDone        = "done"
	NoteStatusPartialDone = "partial_done"
)

type Note struct {
	ID           string   `json:"id"`
	SourceURL    string   `json:"source_url"`
	Title        string   `json:"title"`
	SummaryShort string   `json:"summary_short"`
	SummaryLong  string   `json:"summary_long"`
	ContentFull  string   `json:"content_full"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Hashtags     []string `json:"hashtags"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message,omitempty"`
	PrimaryKind  string   `json:"primary_kind"`
	Kinds        []string `json:"kinds"`
	Ctime        int64    `json:"ctime"`
	Mtime        int64    `json:"mtime"`
}
