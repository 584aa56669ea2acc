package assessment

import "context"

// Assessor port (remote model yang menilai URL)
type Assessor interface {
	Assess(ctx context.Context, url string) (Result, error)
	Model() string
}

// ModelLister is implemented by assessors that can enumerate upstream models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// HistoryRepository port. Entries are kept newest first.
type HistoryRepository interface {
	Prepend(ctx context.Context, e *HistoryEntry) error
	List(ctx context.Context) ([]*HistoryEntry, error)
	Clear(ctx context.Context) error
}
