package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// BuildConcurrent tokenises documents on pool and merges the results in
// input order, producing the same index as Build. The pool is not released.
func BuildConcurrent[T Indexable](ctx context.Context, docs []T, pool *ants.Pool) (*Index[T], error) {
	results := make([]analyzed, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("building index: %w", err)
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = analyze(textOf(docs[i]))
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting document %d: %w", i, err)
		}
	}
	wg.Wait()

	ix := newIndex(docs)
	for i := range results {
		ix.merge(DocRef(i), results[i])
	}
	ix.finish()
	return ix, nil
}
