package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/backlog/internal/formatter"
	"github.com/desertthunder/backlog/internal/library"
	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/ui"
	"github.com/urfave/cli/v3"
)

func optionalPlatform(cmd *cli.Command) *int64 {
	if !cmd.IsSet("platform") {
		return nil
	}
	id := cmd.Int64("platform")
	return &id
}

// LibraryAdd adds a game to a user's library.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	var platform *models.Platform
	if id := optionalPlatform(cmd); id != nil {
		platform = &models.Platform{ID: *id}
	}

	entry, err := svc.AddToLibrary(ctx, cmd.Int64("user"), cmd.Int64("id"), platform)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entry, cmd.Bool("pretty"))
	}
	return r.writePlain("%s added %s\n", ui.OK("✓"), describeEntry(*entry))
}

// LibraryList prints one page of a user's library.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	page, err := svc.ListLibrary(ctx, cmd.Int64("user"), cmd.Int("page"), cmd.Int("page-size"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	pages := (page.Total + page.PageSize - 1) / page.PageSize
	if err := r.writePlainHeader(fmt.Sprintf("Library: %d games (page %d of %d)", page.Total, page.Page, max(pages, 1))); err != nil {
		return err
	}
	for i, entry := range page.Entries {
		n := (page.Page-1)*page.PageSize + i + 1
		if err := r.writePlain("%4d. %s\n", n, describeEntry(entry)); err != nil {
			return err
		}
	}
	if len(page.Entries) == 0 {
		return r.writePlain("%s\n", ui.Help("no entries on this page"))
	}
	return nil
}

// LibraryShow prints every entry a user holds for one game.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	entries, err := svc.LibraryEntries(ctx, cmd.Int64("user"), cmd.Int64("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if err := r.writeItem(entries[0].Item); err != nil {
		return err
	}
	if err := r.writePlainln("%s", "In library:"); err != nil {
		return err
	}
	for _, entry := range entries {
		platform := "any platform"
		if entry.Platform != nil {
			platform = entry.Platform.Name
		}
		if err := r.writePlain("  - %s, added %s\n", platform, entry.AddedAt.Local().Format(time.DateOnly)); err != nil {
			return err
		}
	}
	return nil
}

// LibraryRemove removes one entry. A missing entry is reported, not treated as a failure.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	removed, err := svc.RemoveFromLibrary(ctx, cmd.Int64("user"), cmd.Int64("id"), optionalPlatform(cmd))
	if err != nil {
		return err
	}
	if !removed {
		return r.writePlain("%s no matching entry for game %d\n", ui.Warn("!"), cmd.Int64("id"))
	}
	return r.writePlain("%s removed game %d\n", ui.OK("✓"), cmd.Int64("id"))
}

// LibraryExport writes the whole library in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	userID := cmd.Int64("user")
	export := &models.LibraryExport{UserID: userID, ExportedAt: time.Now().UTC(), Entries: []models.LibraryEntry{}}
	for page := 1; ; page++ {
		result, err := svc.ListLibrary(ctx, userID, page, library.MaxPageSize)
		if err != nil {
			return err
		}
		export.Entries = append(export.Entries, result.Entries...)
		if len(export.Entries) >= result.Total || len(result.Entries) == 0 {
			break
		}
	}

	output := cmd.String("output")
	var files []string
	switch format {
	case formatter.FormatCSV:
		path, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, path)
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, path)
	case formatter.FormatJSON:
		path, err := formatter.WriteJSONExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, path)
	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(export, output, cmd.Bool("covers"))
		if err != nil {
			return err
		}
		for _, warning := range result.Warnings {
			r.logger.Warn("export warning", "detail", warning)
		}
		files = append(files, result.Files...)
	}

	r.logger.Info("library exported", "user", userID, "format", format, "games", len(export.Entries))
	for _, f := range files {
		if err := r.writePlain("%s wrote %s\n", ui.OK("✓"), f); err != nil {
			return err
		}
	}
	return nil
}

func describeEntry(entry models.LibraryEntry) string {
	name := fmt.Sprint(entry.CatalogItemID)
	if entry.Item != nil {
		name = fmt.Sprintf("%s (%d)", entry.Item.Name, entry.CatalogItemID)
	}
	if entry.Platform != nil && entry.Platform.Name != "" {
		return name + " on " + entry.Platform.Name
	}
	if entry.Platform != nil {
		return fmt.Sprintf("%s on platform %d", name, entry.Platform.ID)
	}
	return name
}
