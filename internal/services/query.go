package services

import (
	"fmt"
	"strings"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

const (
	MinSearchLimit     = 1
	MaxSearchLimit     = 50
	DefaultSearchLimit = 10
)

var (
	searchFields = []string{
		"name",
		"platforms.name",
		"release_dates.date",
		"release_dates.human",
		"release_dates.platform.name",
		"cover.image_id",
	}

	detailFields = append(append([]string{}, searchFields...),
		"summary",
		"storyline",
		"genres.name",
		"involved_companies.company.name",
		"involved_companies.developer",
		"involved_companies.publisher",
		"rating",
		"aggregated_rating",
	)
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r", " ",
	"\n", " ",
	"\t", " ",
)

// ClampLimit bounds a search limit to [MinSearchLimit, MaxSearchLimit].
func ClampLimit(limit int) int {
	return min(max(limit, MinSearchLimit), MaxSearchLimit)
}

// Build translates a [models.CatalogQuery] into an APICalypse body.
func Build(q models.CatalogQuery) (string, error) {
	switch q.Kind {
	case models.QueryByName:
		return BuildSearchQuery(q.Text, q.Limit)
	case models.QueryByID:
		return BuildDetailQuery(q.ID)
	default:
		return "", fmt.Errorf("%w: unknown query kind %d", shared.ErrInvalidArgument, q.Kind)
	}
}

// BuildSearchQuery builds `search "<text>"; fields ...; limit N;`.
//
// text is trimmed and must not be empty. Quotes and backslashes are escaped and control whitespace is
// flattened so the literal cannot terminate early.
func BuildSearchQuery(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: search text is empty", shared.ErrInvalidArgument)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "search \"%s\"; ", literalEscaper.Replace(text))
	fmt.Fprintf(&b, "fields %s; ", strings.Join(searchFields, ","))
	fmt.Fprintf(&b, "limit %d;", ClampLimit(limit))
	return b.String(), nil
}

// BuildDetailQuery builds `fields ...; where id = N;`.
func BuildDetailQuery(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: catalog id must be positive, got %d", shared.ErrInvalidArgument, id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "fields %s; ", strings.Join(detailFields, ","))
	fmt.Fprintf(&b, "where id = %d;", id)
	return b.String(), nil
}

// UnquoteSearchLiteral extracts and unescapes the string literal of a `search "...";` clause.
func UnquoteSearchLiteral(body string) (string, error) {
	const prefix = `search "`
	start := strings.Index(body, prefix)
	if start < 0 {
		return "", fmt.Errorf("no search clause in %q", body)
	}

	var out strings.Builder
	rest := body[start+len(prefix):]
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; c {
		case '\\':
			if i+1 >= len(rest) {
				return "", fmt.Errorf("dangling escape in %q", body)
			}
			i++
			out.WriteByte(rest[i])
		case '"':
			if !strings.HasPrefix(strings.TrimLeft(rest[i+1:], " "), ";") {
				return "", fmt.Errorf("search literal not followed by ';' in %q", body)
			}
			return out.String(), nil
		default:
			out.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated search literal in %q", body)
}
