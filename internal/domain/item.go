package domain

import "strconv"

// Item is a single entry of the scrolling list.
// Key is used only as a rendering key; uniqueness is whatever the source guarantees.
type Item interface {
	Key() string
	Label() string
}

// Photo is an item served by the remote photo endpoint
type Photo struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (p Photo) Key() string   { return strconv.Itoa(p.ID) }
func (p Photo) Label() string { return p.Title }

// Number is an item produced by the synthetic generator
type Number struct {
	Value int `json:"value"`
}

func (n Number) Key() string   { return strconv.Itoa(n.Value) }
func (n Number) Label() string { return strconv.Itoa(n.Value) }

// SourceKind identifies which item source backs the list
type SourceKind string

const (
	SourceRemote    SourceKind = "remote"
	SourceSynthetic SourceKind = "synthetic"
)

// DefaultBatchSize returns the batch size used by a source kind when none is configured
func DefaultBatchSize(kind SourceKind) int {
	switch kind {
	case SourceSynthetic:
		return 25
	default:
		return 50
	}
}
