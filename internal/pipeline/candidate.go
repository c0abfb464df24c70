package pipeline

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// CandidateState is the lifecycle of one staged image. A candidate only ever
// moves forward, except for the Verifying -> Pending cancellation edge.
type CandidateState int

const (
	StatePending CandidateState = iota
	StateVerifying
	StateUploaded
	StateCommitted
	StateRemoved
)

func (s CandidateState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateVerifying:
		return "verifying"
	case StateUploaded:
		return "uploaded"
	case StateCommitted:
		return "committed"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Resource is one user-provided binary, held in memory for the lifetime of
// the staging session.
type Resource struct {
	Name        string
	Size        int64
	ContentType string
	Content     []byte
}

// IsImage reports whether the declared MIME type marks this resource as an
// image. Intake silently drops everything else.
func (r Resource) IsImage() bool {
	return strings.HasPrefix(r.ContentType, "image/")
}

// Open returns a fresh reader over the resource content. Retried uploads
// need a rewound body.
func (r Resource) Open() io.Reader {
	return bytes.NewReader(r.Content)
}

// AltText derives the alt text recorded at commit time from the original
// file name.
func (r Resource) AltText() string {
	return strings.TrimSuffix(r.Name, filepath.Ext(r.Name))
}

// ImageCandidate pairs a resource with its lifecycle state. LastError holds
// the most recent upload failure, surfaced inline next to the candidate.
type ImageCandidate struct {
	Resource  Resource
	State     CandidateState
	LastError string
}

// UploadedAsset pairs a verified, uploaded candidate with the durable URL
// returned by storage. Consumed and cleared by Commit.
type UploadedAsset struct {
	Resource Resource
	URL      string
}
