package catalog

import "context"

// Store is the backing library store consumed by the merge and split tasks.
type Store interface {
	// ListLibraries returns every top-level library container.
	ListLibraries(ctx context.Context) ([]Library, error)
	// ListRecords returns movie records matching the query.
	ListRecords(ctx context.Context, query Query) ([]MovieRecord, error)
	// GetRecord fetches one record. It returns nil, nil when the id is unknown.
	GetRecord(ctx context.Context, id string) (*MovieRecord, error)
	// RecordIDsByVersionKey returns the other members of a merged group.
	RecordIDsByVersionKey(ctx context.Context, versionKey, excludeID string) ([]string, error)
	// MergeRecords links the records as alternate versions of one movie.
	// Merging an already merged set must be safe.
	MergeRecords(ctx context.Context, records []MovieRecord) error
	// SplitRecord detaches the record from its alternate-version group.
	SplitRecord(ctx context.Context, record MovieRecord) error
}
