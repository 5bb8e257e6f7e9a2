package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

const (
	// SchemaVersion is the upstream API version the raw types below describe.
	SchemaVersion = "v4"

	imageURLTemplate = "https://images.igdb.com/igdb/image/upload/t_%s/%s.jpg"

	sizeLarge  = "1080p"
	sizeMedium = "720p"
	sizeSmall  = "cover_big"
)

// Raw v4 game. Pointer fields are optional; id and name are required.
//
// Expanded references (cover, platforms, ...) arrive as objects. A bare integer where an object is expected
// fails decoding and is reported as malformed.
type igdbGame struct {
	ID                *int64                `json:"id"`
	Name              *string               `json:"name"`
	Summary           *string               `json:"summary"`
	Storyline         *string               `json:"storyline"`
	Cover             *igdbCover            `json:"cover"`
	ReleaseDates      []igdbReleaseDate     `json:"release_dates"`
	Platforms         []igdbPlatform        `json:"platforms"`
	Genres            []igdbNamed           `json:"genres"`
	InvolvedCompanies []igdbInvolvedCompany `json:"involved_companies"`
	Rating            *float64              `json:"rating"`
	AggregatedRating  *float64              `json:"aggregated_rating"`
}

type igdbCover struct {
	ID      int64   `json:"id"`
	ImageID *string `json:"image_id"`
}

type igdbReleaseDate struct {
	ID       int64         `json:"id"`
	Date     *int64        `json:"date"`
	Human    string        `json:"human"`
	Platform *igdbPlatform `json:"platform"`
}

type igdbPlatform struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type igdbNamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type igdbInvolvedCompany struct {
	ID        int64     `json:"id"`
	Company   igdbNamed `json:"company"`
	Developer bool      `json:"developer"`
	Publisher bool      `json:"publisher"`
}

// CoverURL renders the image URL for one size token.
func CoverURL(imageID, size string) string {
	return fmt.Sprintf(imageURLTemplate, size, imageID)
}

// NormalizeAll decodes a JSON array of games.
func NormalizeAll(body []byte) ([]models.CatalogItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", shared.ErrMalformedUpstreamData)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMalformedUpstreamData, err)
	}

	items := make([]models.CatalogItem, 0, len(raws))
	for i, raw := range raws {
		item, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		items = append(items, *item)
	}
	return items, nil
}

// Normalize maps one raw game object to a [models.CatalogItem].
func Normalize(raw json.RawMessage) (*models.CatalogItem, error) {
	var g igdbGame
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMalformedUpstreamData, err)
	}

	if g.ID == nil || *g.ID <= 0 {
		return nil, fmt.Errorf("%w: missing id", shared.ErrMalformedUpstreamData)
	}
	if g.Name == nil || strings.TrimSpace(*g.Name) == "" {
		return nil, fmt.Errorf("%w: game %d missing name", shared.ErrMalformedUpstreamData, *g.ID)
	}

	item := &models.CatalogItem{
		ID:               *g.ID,
		SchemaVersion:    SchemaVersion,
		Name:             *g.Name,
		Summary:          g.Summary,
		Storyline:        g.Storyline,
		FirstReleaseDate: earliestRelease(g.ReleaseDates),
		Platforms:        []models.Platform{},
		Genres:           []string{},
		Companies:        []models.Company{},
		Rating:           g.Rating,
		AggregatedRating: g.AggregatedRating,
	}

	if g.Cover != nil && g.Cover.ImageID != nil && *g.Cover.ImageID != "" {
		imageID := *g.Cover.ImageID
		item.CoverImageID = &imageID
		item.CoverURLs = coverURLs(imageID)
	}

	for _, p := range g.Platforms {
		item.Platforms = append(item.Platforms, models.Platform{ID: p.ID, Name: p.Name})
	}
	for _, genre := range g.Genres {
		if genre.Name != "" {
			item.Genres = append(item.Genres, genre.Name)
		}
	}
	for _, ic := range g.InvolvedCompanies {
		if ic.Company.Name == "" {
			continue
		}
		item.Companies = append(item.Companies, models.Company{
			Name:      ic.Company.Name,
			Developer: ic.Developer,
			Publisher: ic.Publisher,
		})
	}

	return item, nil
}

func coverURLs(imageID string) models.CoverURLs {
	small := CoverURL(imageID, sizeSmall)
	medium := CoverURL(imageID, sizeMedium)
	large := CoverURL(imageID, sizeLarge)
	return models.CoverURLs{Small: &small, Medium: &medium, Large: &large}
}

// earliestRelease is the minimum date over entries that have one; array order carries no meaning.
func earliestRelease(dates []igdbReleaseDate) *time.Time {
	var earliest *int64
	for _, d := range dates {
		if d.Date == nil {
			continue
		}
		if earliest == nil || *d.Date < *earliest {
			earliest = d.Date
		}
	}
	if earliest == nil {
		return nil
	}
	t := time.Unix(*earliest, 0).UTC()
	return &t
}
