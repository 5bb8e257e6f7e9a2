// package services defines interface Catalog for the upstream game catalog
package services

import (
	"context"

	"github.com/desertthunder/backlog/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is the upstream game catalog.
type Catalog interface {
	// SearchByName returns up to limit items whose name matches text. limit is clamped to [1,50].
	SearchByName(ctx context.Context, text string, limit int) ([]models.CatalogItem, error)

	// GetByID returns the item with the given id, or nil (and no error) when upstream has no match.
	GetByID(ctx context.Context, id int64) (*models.CatalogItem, error)
}

// TokenSource hands out bearer tokens and accepts reports of tokens the upstream rejected.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Invalidate(stale *oauth2.Token)
}
