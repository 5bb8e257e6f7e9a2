package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/backlog/internal/shared"
)

func TestNormalize(t *testing.T) {
	t.Run("Full Detail Object", func(t *testing.T) {
		raw := json.RawMessage(`{
			"id": 1942,
			"name": "The Witcher 3: Wild Hunt",
			"summary": "RPG",
			"storyline": "Geralt",
			"cover": {"id": 89386, "image_id": "coaarl"},
			"platforms": [{"id": 6, "name": "PC (Microsoft Windows)"}, {"id": 48, "name": "PlayStation 4"}],
			"release_dates": [{"id": 1, "date": 1431993600, "human": "May 19, 2015", "platform": {"id": 6, "name": "PC (Microsoft Windows)"}}],
			"genres": [{"id": 12, "name": "Role-playing (RPG)"}],
			"involved_companies": [
				{"id": 1, "company": {"id": 908, "name": "CD Projekt RED"}, "developer": true, "publisher": false},
				{"id": 2, "company": {"id": 1, "name": "Bandai Namco"}, "developer": false, "publisher": true}
			],
			"rating": 93.5,
			"aggregated_rating": 92.1
		}`)

		item, err := Normalize(raw)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if item.ID != 1942 || item.Name != "The Witcher 3: Wild Hunt" {
			t.Errorf("unexpected identity %d %q", item.ID, item.Name)
		}
		if shared.Deref(item.Summary) != "RPG" || shared.Deref(item.Storyline) != "Geralt" {
			t.Errorf("unexpected text fields %v %v", item.Summary, item.Storyline)
		}
		if len(item.Platforms) != 2 || item.Platforms[1].Name != "PlayStation 4" {
			t.Errorf("unexpected platforms %+v", item.Platforms)
		}
		if len(item.Genres) != 1 || item.Genres[0] != "Role-playing (RPG)" {
			t.Errorf("unexpected genres %v", item.Genres)
		}
		if got := item.Developers(); len(got) != 1 || got[0] != "CD Projekt RED" {
			t.Errorf("unexpected developers %v", got)
		}
		if got := item.Publishers(); len(got) != 1 || got[0] != "Bandai Namco" {
			t.Errorf("unexpected publishers %v", got)
		}
		if shared.Deref(item.Rating) != 93.5 || shared.Deref(item.AggregatedRating) != 92.1 {
			t.Errorf("unexpected ratings %v %v", item.Rating, item.AggregatedRating)
		}
		want := time.Unix(1431993600, 0).UTC()
		if item.FirstReleaseDate == nil || !item.FirstReleaseDate.Equal(want) {
			t.Errorf("expected release %v, got %v", want, item.FirstReleaseDate)
		}
	})

	t.Run("Cover URLs", func(t *testing.T) {
		item, err := Normalize(json.RawMessage(`{"id": 1, "name": "x", "cover": {"image_id": "abc123"}}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		urls := map[string]*string{
			"t_cover_big": item.CoverURLs.Small,
			"t_720p":      item.CoverURLs.Medium,
			"t_1080p":     item.CoverURLs.Large,
		}
		for size, url := range urls {
			if url == nil {
				t.Fatalf("expected %s url", size)
			}
			if !strings.Contains(*url, "abc123") || !strings.Contains(*url, "/"+size+"/") {
				t.Errorf("url %s should contain abc123 and %s", *url, size)
			}
		}
		if *item.CoverURLs.Medium != "https://images.igdb.com/igdb/image/upload/t_720p/abc123.jpg" {
			t.Errorf("unexpected medium url %s", *item.CoverURLs.Medium)
		}
		if shared.Deref(item.CoverImageID) != "abc123" {
			t.Errorf("expected cover image id abc123, got %v", item.CoverImageID)
		}
	})

	t.Run("Absent Cover", func(t *testing.T) {
		for _, raw := range []string{
			`{"id": 1, "name": "x"}`,
			`{"id": 1, "name": "x", "cover": {"id": 5}}`,
			`{"id": 1, "name": "x", "cover": {"image_id": ""}}`,
		} {
			item, err := Normalize(json.RawMessage(raw))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if item.CoverURLs.Small != nil || item.CoverURLs.Medium != nil || item.CoverURLs.Large != nil {
				t.Errorf("expected no cover urls for %s, got %+v", raw, item.CoverURLs)
			}
			if item.CoverImageID != nil {
				t.Errorf("expected no cover image id for %s", raw)
			}
		}
	})

	t.Run("Earliest Release Date", func(t *testing.T) {
		tc := []struct {
			name string
			raw  string
			want *int64
		}{
			{
				name: "unordered dates pick the minimum",
				raw:  `{"id": 1, "name": "x", "release_dates": [{"date": 200}, {"date": 100}]}`,
				want: ptr(int64(100)),
			},
			{
				name: "entries without date are ignored",
				raw:  `{"id": 1, "name": "x", "release_dates": [{"human": "TBD"}, {"date": 300}]}`,
				want: ptr(int64(300)),
			},
			{
				name: "all entries without date",
				raw:  `{"id": 1, "name": "x", "release_dates": [{"human": "TBD"}, {"human": "Q4"}]}`,
			},
			{
				name: "empty list",
				raw:  `{"id": 1, "name": "x", "release_dates": []}`,
			},
			{
				name: "absent",
				raw:  `{"id": 1, "name": "x"}`,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				item, err := Normalize(json.RawMessage(tt.raw))
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tt.want == nil {
					if item.FirstReleaseDate != nil {
						t.Errorf("expected no release date, got %v", item.FirstReleaseDate)
					}
					return
				}
				if item.FirstReleaseDate == nil || item.FirstReleaseDate.Unix() != *tt.want {
					t.Errorf("expected release epoch %d, got %v", *tt.want, item.FirstReleaseDate)
				}
			})
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		tc := []struct {
			name string
			raw  string
		}{
			{name: "missing id", raw: `{"name": "x"}`},
			{name: "zero id", raw: `{"id": 0, "name": "x"}`},
			{name: "missing name", raw: `{"id": 1}`},
			{name: "blank name", raw: `{"id": 1, "name": " "}`},
			{name: "unexpanded cover reference", raw: `{"id": 1, "name": "x", "cover": 123}`},
			{name: "string id", raw: `{"id": "1", "name": "x"}`},
			{name: "not an object", raw: `[1, 2]`},
			{name: "invalid json", raw: `{"id": 1,`},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Normalize(json.RawMessage(tt.raw))
				if !errors.Is(err, shared.ErrMalformedUpstreamData) {
					t.Errorf("expected ErrMalformedUpstreamData, got %v", err)
				}
			})
		}
	})

	t.Run("Empty Collections Are Non Nil", func(t *testing.T) {
		item, err := Normalize(json.RawMessage(`{"id": 1, "name": "x"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if item.Platforms == nil || item.Genres == nil || item.Companies == nil {
			t.Error("expected empty, non-nil slices")
		}
	})
}

func TestNormalizeAll(t *testing.T) {
	t.Run("Array", func(t *testing.T) {
		items, err := NormalizeAll([]byte(` [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}] `))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 || items[1].ID != 2 {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("Empty Array", func(t *testing.T) {
		items, err := NormalizeAll([]byte(`[]`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected no items, got %d", len(items))
		}
	})

	t.Run("Not An Array", func(t *testing.T) {
		for _, body := range []string{`{"message": "oops"}`, ``, `null`} {
			if _, err := NormalizeAll([]byte(body)); !errors.Is(err, shared.ErrMalformedUpstreamData) {
				t.Errorf("NormalizeAll(%q) expected ErrMalformedUpstreamData, got %v", body, err)
			}
		}
	})

	t.Run("One Bad Element Fails The Batch", func(t *testing.T) {
		_, err := NormalizeAll([]byte(`[{"id": 1, "name": "a"}, {"id": 2}]`))
		if !errors.Is(err, shared.ErrMalformedUpstreamData) {
			t.Errorf("expected ErrMalformedUpstreamData, got %v", err)
		}
	})
}

func ptr[T any](v T) *T { return &v }
