package domain

// SnapshotStore keeps the full dataset read from a remote endpoint.
// It holds one snapshot per endpoint, never individual batches.
type SnapshotStore interface {
	GetPhotos(endpoint string) ([]Photo, bool, error)
	SavePhotos(endpoint string, photos []Photo) error
	Invalidate(endpoint string) error
	Close() error
}
