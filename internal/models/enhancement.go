package models

import "github.com/google/uuid"

// EnhancementPreview is one best-effort preview variant. Previews live in
// the previews area of the bucket and are reclaimed by the sweeper; they are
// never recorded as product images.
type EnhancementPreview struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
}

// EnhancementRun tracks one preview generation run end to end.
type EnhancementRun struct {
	ID       uuid.UUID            `json:"id"`
	Status   string               `json:"status"` // processing, done, failed
	Previews []EnhancementPreview `json:"previews,omitempty"`
	Error    string               `json:"error,omitempty"`
}

const (
	EnhancementStatusProcessing = "processing"
	EnhancementStatusDone       = "done"
	EnhancementStatusFailed     = "failed"
)
