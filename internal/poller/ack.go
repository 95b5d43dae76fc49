package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/amishk599/jobradar/internal/model"
)

// Acknowledge marks every unnotified stored posting whose URL appears in
// delivered. Postings outside the batch are left alone. It returns how many
// rows were marked.
func Acknowledge(ctx context.Context, store model.PostingStore, delivered []model.Posting) (int, error) {
	urls := make(map[string]struct{}, len(delivered))
	for _, p := range delivered {
		urls[p.URL] = struct{}{}
	}

	pending, err := store.Unnotified(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading unnotified postings: %w", err)
	}

	marked := 0
	var errs []error
	for _, p := range pending {
		if _, ok := urls[p.URL]; !ok {
			continue
		}
		if err := store.MarkNotified(ctx, p.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		marked++
	}
	return marked, errors.Join(errs...)
}
