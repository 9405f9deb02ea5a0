package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/fieldgate/internal/loader"
	"github.com/rpattn/fieldgate/internal/repository"
)

type ctxKey string

const loadersKey ctxKey = "loaders"

// DataLoaderMiddleware attaches a fresh set of loaders to every request context
func DataLoaderMiddleware(schemas repository.DocumentSchemaRepository, definitions repository.WorkflowDefinitionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loaders := loader.New(schemas, definitions)

			ctx := context.WithValue(r.Context(), loadersKey, loaders)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadersFromContext retrieves the request loaders from context
func LoadersFromContext(ctx context.Context) *loader.Loaders {
	if l, ok := ctx.Value(loadersKey).(*loader.Loaders); ok {
		return l
	}
	return nil
}
