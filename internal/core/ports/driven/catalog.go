package driven

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// CatalogSource scans a music catalog into raw items.
type CatalogSource interface {
	// Name identifies the source in logs and output.
	Name() string

	// ListItems returns the catalog's items, deduplicated by id.
	ListItems(ctx context.Context) ([]domain.RawItem, error)
}
