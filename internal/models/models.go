package models

import (
	"fmt"
	"strings"
	"time"
)

// QueryKind discriminates [CatalogQuery].
type QueryKind int

const (
	QueryByName QueryKind = iota + 1
	QueryByID
)

func (k QueryKind) String() string {
	switch k {
	case QueryByName:
		return "by_name"
	case QueryByID:
		return "by_id"
	default:
		return "unknown"
	}
}

// CatalogQuery is either a name search (Text, Limit) or an id lookup (ID).
type CatalogQuery struct {
	Kind  QueryKind
	Text  string
	Limit int
	ID    int64
}

// SearchQuery builds a [QueryByName] query.
func SearchQuery(text string, limit int) CatalogQuery {
	return CatalogQuery{Kind: QueryByName, Text: text, Limit: limit}
}

// DetailQuery builds a [QueryByID] query.
func DetailQuery(id int64) CatalogQuery {
	return CatalogQuery{Kind: QueryByID, ID: id}
}

// Platform is an IGDB platform, also used to qualify a [LibraryEntry].
type Platform struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Company is an involved company tagged with its role on the game.
type Company struct {
	Name      string `json:"name"`
	Developer bool   `json:"developer"`
	Publisher bool   `json:"publisher"`
}

// CoverURLs holds the three image sizes derived from one IGDB image id. All nil when the item has no cover.
type CoverURLs struct {
	Small  *string `json:"small,omitempty"`  // t_cover_big
	Medium *string `json:"medium,omitempty"` // t_720p
	Large  *string `json:"large,omitempty"`  // t_1080p
}

// CatalogItem is a normalized IGDB game.
type CatalogItem struct {
	ID               int64      `json:"id"`
	SchemaVersion    string     `json:"schema_version"`
	Name             string     `json:"name"`
	Summary          *string    `json:"summary,omitempty"`
	Storyline        *string    `json:"storyline,omitempty"`
	CoverImageID     *string    `json:"cover_image_id,omitempty"`
	CoverURLs        CoverURLs  `json:"cover_urls"`
	FirstReleaseDate *time.Time `json:"first_release_date,omitempty"`
	Platforms        []Platform `json:"platforms"`
	Genres           []string   `json:"genres"`
	Companies        []Company  `json:"companies"`
	Rating           *float64   `json:"rating,omitempty"`
	AggregatedRating *float64   `json:"aggregated_rating,omitempty"`
	CachedAt         time.Time  `json:"cached_at,omitzero"`
}

// Validate checks the two fields every item must carry.
func (c *CatalogItem) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("catalog item id must be positive, got %d", c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("catalog item %d has no name", c.ID)
	}
	return nil
}

// Developers returns the names of companies tagged as developer.
func (c *CatalogItem) Developers() []string {
	var names []string
	for _, co := range c.Companies {
		if co.Developer {
			names = append(names, co.Name)
		}
	}
	return names
}

// Publishers returns the names of companies tagged as publisher.
func (c *CatalogItem) Publishers() []string {
	var names []string
	for _, co := range c.Companies {
		if co.Publisher {
			names = append(names, co.Name)
		}
	}
	return names
}

// LibraryEntry links a user to a cached [CatalogItem].
//
// Unique on (UserID, CatalogItemID, Platform.ID); an entry without a platform is unique on (UserID, CatalogItemID).
type LibraryEntry struct {
	ID            string       `json:"id"`
	Sequence      int          `json:"-"`
	UserID        int64        `json:"user_id"`
	CatalogItemID int64        `json:"igdb_id"`
	Platform      *Platform    `json:"platform,omitempty"`
	AddedAt       time.Time    `json:"added_at"`
	Item          *CatalogItem `json:"item,omitempty"`
}

// Validate checks identity fields before insert.
func (e *LibraryEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("library entry has no id")
	}
	if e.UserID <= 0 {
		return fmt.Errorf("library entry user id must be positive, got %d", e.UserID)
	}
	if e.CatalogItemID <= 0 {
		return fmt.Errorf("library entry catalog item id must be positive, got %d", e.CatalogItemID)
	}
	if e.Platform != nil && e.Platform.ID <= 0 {
		return fmt.Errorf("library entry platform id must be positive, got %d", e.Platform.ID)
	}
	return nil
}

// LibraryPage is one page of a user's library.
type LibraryPage struct {
	Entries  []LibraryEntry `json:"games"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// LibraryExport is a full snapshot of one user's library.
type LibraryExport struct {
	UserID     int64          `json:"user_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Entries    []LibraryEntry `json:"games"`
}
