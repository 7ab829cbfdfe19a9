package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FetchFunc fetches the item for one id.
type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

// FetchAll fetches the item of every id and returns them in id order.
// concurrency <= 1 fetches sequentially. Any error aborts the batch.
// Progress is logged to the logger carried by ctx, if any.
func FetchAll[T any](ctx context.Context, ids []string, concurrency int, fetch FetchFunc[T]) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	results := make([]T, len(ids))

	if concurrency <= 1 {
		for i, id := range ids {
			item, err := fetch(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", id, err)
			}
			results[i] = item
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, id := range ids {
			i, id := i, id
			g.Go(func() error {
				item, err := fetch(gCtx, id)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", id, err)
				}
				results[i] = item
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("items", len(ids)).
		Int("concurrency", max(concurrency, 1)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}
