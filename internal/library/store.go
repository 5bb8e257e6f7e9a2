package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/repositories"
	"github.com/desertthunder/backlog/internal/services"
	"github.com/desertthunder/backlog/internal/shared"
	"golang.org/x/sync/singleflight"
)

const (
	MinPageSize     = 1
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// Store is the local catalog cache and the per-user library.
type Store struct {
	db      *sql.DB
	catalog services.Catalog
	items   *repositories.CatalogItemRepository
	entries *repositories.LibraryRepository
	fetches singleflight.Group
	logger  *log.Logger
}

// NewStore creates a Store over a migrated database. A nil logger discards output.
func NewStore(db *sql.DB, catalog services.Catalog, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Store{
		db:      db,
		catalog: catalog,
		items:   repositories.NewCatalogItemRepository(db),
		entries: repositories.NewLibraryRepository(db),
		logger:  shared.WithLogger(logger, "component", "store"),
	}
}

// GetOrFetch returns the cached item for id, fetching and caching it on a miss.
//
// A hit makes no upstream call. Returns [shared.ErrNotFound] when upstream has no such game.
func (s *Store) GetOrFetch(ctx context.Context, id int64) (*models.CatalogItem, error) {
	item, err := s.items.Get(ctx, id)
	if err == nil {
		s.logger.Debug("cache hit", "id", id)
		return item, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	item, err = s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.items.Upsert(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

// fetch resolves id upstream. Concurrent callers for the same id share one request, which is
// detached from any single caller's cancellation; each caller still stops waiting when its ctx ends.
func (s *Store) fetch(ctx context.Context, id int64) (*models.CatalogItem, error) {
	ch := s.fetches.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		s.logger.Debug("cache miss", "id", id)
		return s.catalog.GetByID(context.WithoutCancel(ctx), id)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("shared upstream fetch", "id", id)
	}

	item, _ := res.Val.(*models.CatalogItem)
	if item == nil {
		s.logger.Info("game not found upstream", "id", id)
		return nil, fmt.Errorf("%w: game %d", shared.ErrNotFound, id)
	}

	copied := *item
	return &copied, nil
}

// AddToLibrary links id (optionally qualified by platform) to userID.
//
// The uniqueness key is checked before any upstream call. The cache upsert and the entry insert
// commit together or not at all.
func (s *Store) AddToLibrary(ctx context.Context, userID, id int64, platform *models.Platform) (*models.LibraryEntry, error) {
	var platformID *int64
	if platform != nil {
		platformID = &platform.ID
	}

	exists, err := s.entries.Exists(ctx, userID, id, platformID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user %d already has game %d", shared.ErrDuplicateEntry, userID, id)
	}

	item, cached, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if platform != nil && platform.Name == "" {
		platform = &models.Platform{ID: platform.ID, Name: platformName(item, platform.ID)}
	}

	entry := &models.LibraryEntry{UserID: userID, CatalogItemID: id, Platform: platform}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if !cached {
		if err := s.items.Upsert(ctx, tx, item); err != nil {
			return nil, err
		}
	}
	if err := s.entries.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit library entry: %w", err)
	}

	s.logger.Info("added to library", "user", userID, "id", id, "platform", platformID)
	entry.Item = item
	return entry, nil
}

// resolve returns the item for id and whether it came from the cache, without writing.
func (s *Store) resolve(ctx context.Context, id int64) (*models.CatalogItem, bool, error) {
	item, err := s.items.Get(ctx, id)
	if err == nil {
		return item, true, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	item, err = s.fetch(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return item, false, nil
}

// List returns page (1-indexed) of userID's entries in insertion order with the total entry count.
func (s *Store) List(ctx context.Context, userID int64, page, pageSize int) ([]models.LibraryEntry, int, error) {
	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be at least 1, got %d", shared.ErrInvalidArgument, page)
	}
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, 0, fmt.Errorf("%w: page size must be in [%d, %d], got %d",
			shared.ErrInvalidArgument, MinPageSize, MaxPageSize, pageSize)
	}

	total, err := s.entries.Count(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	entries, err := s.entries.List(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Remove deletes the matching entry and reports whether one existed. A nil platformID matches only the
// unqualified entry. The cached item is kept.
func (s *Store) Remove(ctx context.Context, userID, id int64, platformID *int64) (bool, error) {
	removed, err := s.entries.Remove(ctx, userID, id, platformID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("removed from library", "user", userID, "id", id, "platform", platformID)
	}
	return removed, nil
}

// Entries returns every entry userID holds for id, one per platform.
func (s *Store) Entries(ctx context.Context, userID, id int64) ([]models.LibraryEntry, error) {
	return s.entries.ByItem(ctx, userID, id)
}

func platformName(item *models.CatalogItem, id int64) string {
	for _, p := range item.Platforms {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}
