package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/nmarques/breaking-news-service/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders holds the request-scoped loaders.
type Loaders struct {
	UserByID *dataloader.Loader
}

// Middleware injects fresh loaders into each request's context, so author
// lookups made while rendering one response are batched into a single
// GetUsersByIDs call and cached for the rest of the request.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
				ids := make([]string, len(keys))
				for i, k := range keys {
					ids[i] = k.String()
				}

				usersMap, err := store.GetUsersByIDs(ctx, ids)
				results := make([]*dataloader.Result, len(keys))
				if err != nil {
					for i := range results {
						results[i] = &dataloader.Result{Error: err}
					}
					return results
				}

				// Results must line up with the requested keys; unknown
				// users load as nil.
				for i, id := range ids {
					results[i] = &dataloader.Result{Data: usersMap[id]}
				}
				return results
			}

			loaders := Loaders{
				UserByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
			}

			ctx := context.WithValue(r.Context(), key, &loaders)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For extracts the loaders from the context. It returns nil when the
// middleware did not run, so callers can fall back to direct lookups.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}
