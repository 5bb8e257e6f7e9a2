package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
	"github.com/desertthunder/backlog/internal/ui"
	"github.com/urfave/cli/v3"
)

// GamesSearch searches the catalog by name.
func (r *Runner) GamesSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.String("query")
	limit := cmd.Int("limit")

	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	r.logger.Debugf("searching games for %q with limit %v", query, limit)
	items, err := svc.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if err := r.writePlainHeader(fmt.Sprintf("Results for %q (%d)", query, len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := r.writePlain("%8d  %s%s\n", item.ID, item.Name, r.releaseSuffix(&item)); err != nil {
			return err
		}
	}
	return nil
}

// GamesShow prints one game's detail.
func (r *Runner) GamesShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64("id")

	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	item, err := svc.GetDetail(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(item, cmd.Bool("pretty"))
	}
	return r.writeItem(item)
}

func (r *Runner) releaseSuffix(item *models.CatalogItem) string {
	if item.FirstReleaseDate == nil {
		return ""
	}
	return ui.Help(fmt.Sprintf(" (%d)", item.FirstReleaseDate.Year()))
}

func (r *Runner) writeItem(item *models.CatalogItem) error {
	if err := r.writePlainHeader(item.Name + r.releaseSuffix(item)); err != nil {
		return err
	}

	platforms := make([]string, 0, len(item.Platforms))
	for _, p := range item.Platforms {
		platforms = append(platforms, p.Name)
	}

	rows := []struct{ label, value string }{
		{"IGDB ID", fmt.Sprint(item.ID)},
		{"Platforms", strings.Join(platforms, ", ")},
		{"Genres", strings.Join(item.Genres, ", ")},
		{"Developers", strings.Join(item.Developers(), ", ")},
		{"Publishers", strings.Join(item.Publishers(), ", ")},
		{"Cover", shared.Deref(item.CoverURLs.Large)},
	}
	if item.Rating != nil {
		rows = append(rows, struct{ label, value string }{"Rating", fmt.Sprintf("%.1f", *item.Rating)})
	}

	for _, row := range rows {
		if row.value == "" {
			continue
		}
		if err := r.writePlain("%-11s %s\n", row.label+":", row.value); err != nil {
			return err
		}
	}

	if summary := shared.Deref(item.Summary); summary != "" {
		if err := r.writePlainln("%s", summary); err != nil {
			return err
		}
	}
	return nil
}
