package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

const catalogColumns = `c.igdb_id, c.schema_version, c.name, c.summary, c.storyline, c.cover_image_id,
		c.cover_url_small, c.cover_url_medium, c.cover_url_large, c.first_release_date,
		c.platforms, c.genres, c.companies, c.rating, c.aggregated_rating, c.cached_at`

// CatalogItemRepository caches normalized catalog items keyed by IGDB id.
//
// Items are never evicted. CachedAt is recorded on every write so a freshness policy can be added later.
type CatalogItemRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCatalogItemRepository creates a new CatalogItemRepository with the given database connection
func NewCatalogItemRepository(db *sql.DB) *CatalogItemRepository {
	return &CatalogItemRepository{db: db, now: time.Now}
}

// Get retrieves a cached item. Returns [shared.ErrNotFound] on a cache miss.
func (r *CatalogItemRepository) Get(ctx context.Context, id int64) (*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items c WHERE c.igdb_id = ?`

	var row catalogRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: catalog item %d not cached", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog item: %w", err)
	}
	return row.item()
}

// Upsert writes item through q, replacing any cached copy, and stamps CachedAt.
func (r *CatalogItemRepository) Upsert(ctx context.Context, q Queryer, item *models.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	platforms, err := json.Marshal(nonNil(item.Platforms))
	if err != nil {
		return fmt.Errorf("failed to encode platforms: %w", err)
	}
	genres, err := json.Marshal(nonNil(item.Genres))
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}
	companies, err := json.Marshal(nonNil(item.Companies))
	if err != nil {
		return fmt.Errorf("failed to encode companies: %w", err)
	}

	var released sql.NullTime
	if item.FirstReleaseDate != nil {
		released = sql.NullTime{Time: item.FirstReleaseDate.UTC(), Valid: true}
	}

	cachedAt := r.now().UTC()

	query := `
		INSERT INTO catalog_items (igdb_id, schema_version, name, summary, storyline, cover_image_id,
			cover_url_small, cover_url_medium, cover_url_large, first_release_date,
			platforms, genres, companies, rating, aggregated_rating, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(igdb_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			name = excluded.name,
			summary = excluded.summary,
			storyline = excluded.storyline,
			cover_image_id = excluded.cover_image_id,
			cover_url_small = excluded.cover_url_small,
			cover_url_medium = excluded.cover_url_medium,
			cover_url_large = excluded.cover_url_large,
			first_release_date = excluded.first_release_date,
			platforms = excluded.platforms,
			genres = excluded.genres,
			companies = excluded.companies,
			rating = excluded.rating,
			aggregated_rating = excluded.aggregated_rating,
			cached_at = excluded.cached_at
	`

	_, err = q.ExecContext(ctx, query,
		item.ID,
		item.SchemaVersion,
		item.Name,
		nullString(item.Summary),
		nullString(item.Storyline),
		nullString(item.CoverImageID),
		nullString(item.CoverURLs.Small),
		nullString(item.CoverURLs.Medium),
		nullString(item.CoverURLs.Large),
		released,
		string(platforms),
		string(genres),
		string(companies),
		nullFloat(item.Rating),
		nullFloat(item.AggregatedRating),
		cachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog item: %w", err)
	}

	item.CachedAt = cachedAt
	return nil
}

// Count returns the number of cached items.
func (r *CatalogItemRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog items: %w", err)
	}
	return n, nil
}

// catalogRow is the scan target for [catalogColumns].
type catalogRow struct {
	id                                  int64
	schemaVersion, name                 string
	summary, storyline, coverImageID    sql.NullString
	coverSmall, coverMedium, coverLarge sql.NullString
	released                            sql.NullTime
	platforms, genres, companies        string
	rating, aggregatedRating            sql.NullFloat64
	cachedAt                            time.Time
}

func (r *catalogRow) fields() []any {
	return []any{
		&r.id, &r.schemaVersion, &r.name, &r.summary, &r.storyline, &r.coverImageID,
		&r.coverSmall, &r.coverMedium, &r.coverLarge, &r.released,
		&r.platforms, &r.genres, &r.companies, &r.rating, &r.aggregatedRating, &r.cachedAt,
	}
}

func (r *catalogRow) item() (*models.CatalogItem, error) {
	item := &models.CatalogItem{
		ID:            r.id,
		SchemaVersion: r.schemaVersion,
		Name:          r.name,
		Summary:       stringPtr(r.summary),
		Storyline:     stringPtr(r.storyline),
		CoverImageID:  stringPtr(r.coverImageID),
		CoverURLs: models.CoverURLs{
			Small:  stringPtr(r.coverSmall),
			Medium: stringPtr(r.coverMedium),
			Large:  stringPtr(r.coverLarge),
		},
		Rating:           floatPtr(r.rating),
		AggregatedRating: floatPtr(r.aggregatedRating),
		CachedAt:         r.cachedAt.UTC(),
	}

	if r.released.Valid {
		t := r.released.Time.UTC()
		item.FirstReleaseDate = &t
	}

	if err := json.Unmarshal([]byte(r.platforms), &item.Platforms); err != nil {
		return nil, fmt.Errorf("failed to decode platforms for %d: %w", r.id, err)
	}
	if err := json.Unmarshal([]byte(r.genres), &item.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres for %d: %w", r.id, err)
	}
	if err := json.Unmarshal([]byte(r.companies), &item.Companies); err != nil {
		return nil, fmt.Errorf("failed to decode companies for %d: %w", r.id, err)
	}
	return item, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
