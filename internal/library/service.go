package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/services"
	"github.com/desertthunder/backlog/internal/shared"
)

// Service is the interface handed to routing layers. Every argument is checked before any network call.
type Service struct {
	store  *Store
	logger *log.Logger
}

// NewService wraps store. A nil logger discards output.
func NewService(store *Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Service{store: store, logger: shared.WithLogger(logger, "component", "library")}
}

// Search queries upstream by name. Results are not cached; a limit of 0 means
// [services.DefaultSearchLimit].
func (s *Service) Search(ctx context.Context, text string, limit int) ([]models.CatalogItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: search text is empty", shared.ErrInvalidArgument)
	}
	if limit == 0 {
		limit = services.DefaultSearchLimit
	}
	if limit < services.MinSearchLimit || limit > services.MaxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be in [%d, %d], got %d",
			shared.ErrInvalidArgument, services.MinSearchLimit, services.MaxSearchLimit, limit)
	}

	items, err := s.store.catalog.SearchByName(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search", "text", text, "limit", limit, "results", len(items))
	return items, nil
}

// GetDetail returns the full item for id through the cache.
func (s *Service) GetDetail(ctx context.Context, id int64) (*models.CatalogItem, error) {
	if err := checkID("game id", id); err != nil {
		return nil, err
	}
	return s.store.GetOrFetch(ctx, id)
}

// AddToLibrary saves id for userID, optionally on one platform.
func (s *Service) AddToLibrary(ctx context.Context, userID, id int64, platform *models.Platform) (*models.LibraryEntry, error) {
	if err := checkID("user id", userID); err != nil {
		return nil, err
	}
	if err := checkID("game id", id); err != nil {
		return nil, err
	}
	if platform != nil {
		if err := checkID("platform id", platform.ID); err != nil {
			return nil, err
		}
	}
	return s.store.AddToLibrary(ctx, userID, id, platform)
}

// ListLibrary returns one page of userID's library. Zero page or pageSize select page 1 and
// [DefaultPageSize].
func (s *Service) ListLibrary(ctx context.Context, userID int64, page, pageSize int) (*models.LibraryPage, error) {
	if err := checkID("user id", userID); err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	entries, total, err := s.store.List(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &models.LibraryPage{Entries: entries, Total: total, Page: page, PageSize: pageSize}, nil
}

// RemoveFromLibrary deletes one entry and reports whether it existed.
func (s *Service) RemoveFromLibrary(ctx context.Context, userID, id int64, platformID *int64) (bool, error) {
	if err := checkID("user id", userID); err != nil {
		return false, err
	}
	if err := checkID("game id", id); err != nil {
		return false, err
	}
	if platformID != nil {
		if err := checkID("platform id", *platformID); err != nil {
			return false, err
		}
	}
	return s.store.Remove(ctx, userID, id, platformID)
}

// LibraryEntries returns userID's entries for one game. Returns [shared.ErrNotFound] when there are none.
func (s *Service) LibraryEntries(ctx context.Context, userID, id int64) ([]models.LibraryEntry, error) {
	if err := checkID("user id", userID); err != nil {
		return nil, err
	}
	if err := checkID("game id", id); err != nil {
		return nil, err
	}

	entries, err := s.store.Entries(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: game %d is not in the library of user %d", shared.ErrNotFound, id, userID)
	}
	return entries, nil
}

func checkID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", shared.ErrInvalidArgument, name, id)
	}
	return nil
}
