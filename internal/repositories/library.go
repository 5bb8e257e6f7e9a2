package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

const entryColumns = `e.id, e.sequence, e.user_id, e.igdb_id, e.platform_id, e.platform_name, e.added_at`

// LibraryRepository persists [models.LibraryEntry] rows.
//
// An entry is unique on (user, item, platform), with a missing platform treated as its own value.
// Entries reference catalog_items and are listed in insertion (sequence) order.
type LibraryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db, now: time.Now}
}

// Exists reports whether the uniqueness key is already taken. A nil platformID matches only the unqualified entry.
func (r *LibraryRepository) Exists(ctx context.Context, userID, igdbID int64, platformID *int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM library_entries
			WHERE user_id = ? AND igdb_id = ? AND COALESCE(platform_id, -1) = COALESCE(?, -1)
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, igdbID, nullInt(platformID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check library entry: %w", err)
	}
	return exists, nil
}

// Insert writes entry through tx with a generated ID, sequence and AddedAt.
//
// A uniqueness violation is reported as [shared.ErrDuplicateEntry].
func (r *LibraryRepository) Insert(ctx context.Context, tx Queryer, entry *models.LibraryEntry) error {
	sequence, err := NextSequence(ctx, tx, "library_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	entry.ID = shared.GenerateID()
	entry.Sequence = sequence
	entry.AddedAt = r.now().UTC()

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var platformID sql.NullInt64
	var platformName sql.NullString
	if entry.Platform != nil {
		platformID = sql.NullInt64{Int64: entry.Platform.ID, Valid: true}
		platformName = sql.NullString{String: entry.Platform.Name, Valid: entry.Platform.Name != ""}
	}

	query := `
		INSERT INTO library_entries (id, sequence, user_id, igdb_id, platform_id, platform_name, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		entry.ID,
		entry.Sequence,
		entry.UserID,
		entry.CatalogItemID,
		platformID,
		platformName,
		entry.AddedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %d already has item %d", shared.ErrDuplicateEntry, entry.UserID, entry.CatalogItemID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert library entry: %w", err)
	}

	return nil
}

// List returns one window of a user's entries in insertion order, each joined with its cached item.
func (r *LibraryRepository) List(ctx context.Context, userID int64, offset, limit int) ([]models.LibraryEntry, error) {
	query := `
		SELECT ` + entryColumns + `, ` + catalogColumns + `
		FROM library_entries e
		JOIN catalog_items c ON c.igdb_id = e.igdb_id
		WHERE e.user_id = ?
		ORDER BY e.sequence ASC
		LIMIT ? OFFSET ?
	`

	return r.scanJoined(r.db.QueryContext(ctx, query, userID, limit, offset))
}

// ByItem returns every entry a user holds for one item, one per platform.
func (r *LibraryRepository) ByItem(ctx context.Context, userID, igdbID int64) ([]models.LibraryEntry, error) {
	query := `
		SELECT ` + entryColumns + `, ` + catalogColumns + `
		FROM library_entries e
		JOIN catalog_items c ON c.igdb_id = e.igdb_id
		WHERE e.user_id = ? AND e.igdb_id = ?
		ORDER BY e.sequence ASC
	`

	return r.scanJoined(r.db.QueryContext(ctx, query, userID, igdbID))
}

// Count returns the total number of entries a user holds.
func (r *LibraryRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM library_entries WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count library entries: %w", err)
	}
	return n, nil
}

// Remove deletes the entry matching the uniqueness key and reports whether one existed.
// A nil platformID matches only the unqualified entry.
func (r *LibraryRepository) Remove(ctx context.Context, userID, igdbID int64, platformID *int64) (bool, error) {
	query := `
		DELETE FROM library_entries
		WHERE user_id = ? AND igdb_id = ? AND COALESCE(platform_id, -1) = COALESCE(?, -1)
	`

	result, err := r.db.ExecContext(ctx, query, userID, igdbID, nullInt(platformID))
	if err != nil {
		return false, fmt.Errorf("failed to delete library entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *LibraryRepository) scanJoined(rows *sql.Rows, err error) ([]models.LibraryEntry, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query library entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LibraryEntry{}
	for rows.Next() {
		var (
			entry        models.LibraryEntry
			platformID   sql.NullInt64
			platformName sql.NullString
			item         catalogRow
		)

		dest := append([]any{
			&entry.ID, &entry.Sequence, &entry.UserID, &entry.CatalogItemID,
			&platformID, &platformName, &entry.AddedAt,
		}, item.fields()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}

		if platformID.Valid {
			entry.Platform = &models.Platform{ID: platformID.Int64, Name: platformName.String}
		}
		entry.AddedAt = entry.AddedAt.UTC()

		if entry.Item, err = item.item(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library entries: %w", err)
	}
	return entries, nil
}
