// package formatter exports library data to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its common short form ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

const dateLayout = "2006-01-02"

func releaseDate(item *models.CatalogItem) string {
	if item == nil || item.FirstReleaseDate == nil {
		return ""
	}
	return item.FirstReleaseDate.Format(dateLayout)
}

func platformName(entry models.LibraryEntry) string {
	if entry.Platform == nil {
		return ""
	}
	if entry.Platform.Name != "" {
		return entry.Platform.Name
	}
	return strconv.FormatInt(entry.Platform.ID, 10)
}

func itemName(entry models.LibraryEntry) string {
	if entry.Item == nil {
		return strconv.FormatInt(entry.CatalogItemID, 10)
	}
	return entry.Item.Name
}

// ExportToCSV converts a LibraryExport to CSV format with columns: IGDB ID, Name, Platform, Release Date,
// Genres, Developers, Publishers, Added At
func ExportToCSV(export *models.LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"IGDB ID", "Name", "Platform", "Release Date", "Genres", "Developers", "Publishers", "Added At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range export.Entries {
		var genres, developers, publishers []string
		if entry.Item != nil {
			genres, developers, publishers = entry.Item.Genres, entry.Item.Developers(), entry.Item.Publishers()
		}

		record := []string{
			strconv.FormatInt(entry.CatalogItemID, 10),
			itemName(entry),
			platformName(entry),
			releaseDate(entry.Item),
			strings.Join(genres, "; "),
			strings.Join(developers, "; "),
			strings.Join(publishers, "; "),
			entry.AddedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryExport to Markdown. covers maps IGDB ids to image paths relative to
// the document and may be nil.
func ExportToMarkdown(export *models.LibraryExport, covers map[int64]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Library of user %d\n\n", export.UserID))
	buf.WriteString(fmt.Sprintf("**Games**: %d\n", len(export.Entries)))
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n\n", export.ExportedAt.UTC().Format(time.RFC3339)))

	buf.WriteString("## Games\n\n")
	for i, entry := range export.Entries {
		details := []string{}
		if p := platformName(entry); p != "" {
			details = append(details, p)
		}
		if d := releaseDate(entry.Item); d != "" {
			details = append(details, d)
		}

		detailPart := ""
		if len(details) > 0 {
			detailPart = fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		buf.WriteString(fmt.Sprintf("%d. **%s**%s\n", i+1, itemName(entry), detailPart))

		if cover, ok := covers[entry.CatalogItemID]; ok {
			buf.WriteString(fmt.Sprintf("   ![Cover](%s)\n", cover))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a LibraryExport to plain text format
func ExportToText(export *models.LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("User: %d\n", export.UserID))
	buf.WriteString(fmt.Sprintf("Games: %d\n\n", len(export.Entries)))

	for i, entry := range export.Entries {
		line := fmt.Sprintf("%d. %s", i+1, itemName(entry))
		if p := platformName(entry); p != "" {
			line += " [" + p + "]"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export, including cached item details.
func ExportToJSON(export *models.LibraryExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

func defaultBase(export *models.LibraryExport) string {
	return fmt.Sprintf("library_%d", export.UserID)
}

// WriteCSVExport writes the CSV export. Defaults to library_{user}.csv.
func WriteCSVExport(export *models.LibraryExport, path string) (string, error) {
	if path == "" {
		path = defaultBase(export) + ".csv"
	}

	data, err := ExportToCSV(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Warnings  []string
}

// WriteMarkdownExport exports the library to {dir}/README.md. With withCovers set, small cover images are
// downloaded into {dir}/covers/{igdb_id}.jpg; a failed download is recorded as a warning and the entry is
// rendered without its image.
func WriteMarkdownExport(export *models.LibraryExport, outputDir string, withCovers bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = defaultBase(export)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	covers := map[int64]string{}
	if withCovers {
		if err := os.MkdirAll(filepath.Join(outputDir, "covers"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create covers directory: %w", err)
		}

		for _, entry := range export.Entries {
			if _, done := covers[entry.CatalogItemID]; done || entry.Item == nil || entry.Item.CoverURLs.Small == nil {
				continue
			}

			imageData, err := DownloadImage(*entry.Item.CoverURLs.Small)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("cover for %d: %v", entry.CatalogItemID, err))
				continue
			}

			rel := filepath.Join("covers", fmt.Sprintf("%d.jpg", entry.CatalogItemID))
			if err := os.WriteFile(filepath.Join(outputDir, rel), imageData, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("cover for %d: %v", entry.CatalogItemID, err))
				continue
			}
			covers[entry.CatalogItemID] = filepath.ToSlash(rel)
			result.Files = append(result.Files, filepath.Join(outputDir, rel))
		}
	}

	mdData, err := ExportToMarkdown(export, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the plain text export. Defaults to library_{user}.txt.
func WriteTextExport(export *models.LibraryExport, path string) (string, error) {
	if path == "" {
		path = defaultBase(export) + ".txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the JSON export. Defaults to library_{user}.json.
func WriteJSONExport(export *models.LibraryExport, path string) (string, error) {
	if path == "" {
		path = defaultBase(export) + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}
