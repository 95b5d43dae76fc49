package store

import (
	"context"

	"github.com/amishk599/jobradar/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is persisted, so
// every valid posting appears new on each cycle.
type NopStore struct{}

var _ model.PostingStore = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) RecordIfNew(_ context.Context, p model.Posting) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *NopStore) RecordAllIfNew(ctx context.Context, postings []model.Posting) []model.Posting {
	var fresh []model.Posting
	for _, p := range postings {
		if ok, _ := s.RecordIfNew(ctx, p); ok {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

func (s *NopStore) Unnotified(context.Context) ([]model.Posting, error) { return nil, nil }
func (s *NopStore) MarkNotified(context.Context, int64) error           { return nil }
func (s *NopStore) Stats(context.Context) (model.Stats, error)          { return model.Stats{}, nil }
func (s *NopStore) Close() error                                        { return nil }
