package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
)

// userIDHeader is set by the authenticating proxy in front of this service.
const userIDHeader = "X-User-ID"

// LibraryService is the facade the handlers call. Implemented by library.Service.
type LibraryService interface {
	Search(ctx context.Context, text string, limit int) ([]models.CatalogItem, error)
	GetDetail(ctx context.Context, id int64) (*models.CatalogItem, error)
	AddToLibrary(ctx context.Context, userID, id int64, platform *models.Platform) (*models.LibraryEntry, error)
	ListLibrary(ctx context.Context, userID int64, page, pageSize int) (*models.LibraryPage, error)
	RemoveFromLibrary(ctx context.Context, userID, id int64, platformID *int64) (bool, error)
	LibraryEntries(ctx context.Context, userID, id int64) ([]models.LibraryEntry, error)
}

// GamesHandler serves catalog search and detail.
type GamesHandler struct {
	svc    LibraryService
	logger *log.Logger
}

func NewGamesHandler(svc LibraryService, logger *log.Logger) *GamesHandler {
	return &GamesHandler{svc: svc, logger: logger}
}

func (h *GamesHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/games/search", Handler: h.search},
		{Method: http.MethodGet, Pattern: "/games/{id}", Handler: h.detail},
	}
}

func (h *GamesHandler) search(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *GamesHandler) detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.svc.GetDetail(r.Context(), id)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, item)
}

// LibraryHandler serves a user's library. Every route requires the X-User-ID header.
type LibraryHandler struct {
	svc    LibraryService
	logger *log.Logger
}

func NewLibraryHandler(svc LibraryService, logger *log.Logger) *LibraryHandler {
	return &LibraryHandler{svc: svc, logger: logger}
}

func (h *LibraryHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Pattern: "/library/games", Handler: withUser(h.add)},
		{Method: http.MethodGet, Pattern: "/library/games", Handler: withUser(h.list)},
		{Method: http.MethodGet, Pattern: "/library/games/{id}", Handler: withUser(h.show)},
		{Method: http.MethodDelete, Pattern: "/library/games/{id}", Handler: withUser(h.remove)},
	}
}

type addRequest struct {
	IGDBID     int64  `json:"igdb_id"`
	PlatformID *int64 `json:"platform_id"`
}

func (h *LibraryHandler) add(w http.ResponseWriter, r *http.Request, userID int64) {
	var req addRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid request body: %w", shared.ErrInvalidArgument, err))
		return
	}

	var platform *models.Platform
	if req.PlatformID != nil {
		platform = &models.Platform{ID: *req.PlatformID}
	}

	entry, err := h.svc.AddToLibrary(r.Context(), userID, req.IGDBID, platform)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, entry)
}

func (h *LibraryHandler) list(w http.ResponseWriter, r *http.Request, userID int64) {
	page, err := optionalInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := optionalInt(r, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ListLibrary(r.Context(), userID, page, pageSize)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}

	m := requestMeta(r)
	if m == nil {
		m = &meta{}
	}
	m.Total, m.Page, m.PageSize = &result.Total, result.Page, result.PageSize
	writeJSON(w, http.StatusOK, successResponse{Data: result.Entries, Meta: m})
}

func (h *LibraryHandler) show(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.svc.LibraryEntries(r.Context(), userID, id)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, entries)
}

func (h *LibraryHandler) remove(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var platformID *int64
	if raw := r.URL.Query().Get("platform_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: platform_id must be an integer", shared.ErrInvalidArgument))
			return
		}
		platformID = &v
	}

	removed, err := h.svc.RemoveFromLibrary(r.Context(), userID, id, platformID)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, r, err)
		return
	}
	if !removed {
		writeErrorCode(w, r, http.StatusNotFound, "not_found", "no matching library entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withUser resolves the caller from X-User-ID. A missing header is 401, a malformed one 400.
func withUser(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		if raw == "" {
			writeErrorCode(w, r, http.StatusUnauthorized, "unauthenticated", "missing "+userIDHeader+" header")
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeErrorCode(w, r, http.StatusBadRequest, "invalid_argument", "malformed "+userIDHeader+" header")
			return
		}
		next(w, r, userID)
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: game id must be an integer", shared.ErrInvalidArgument)
	}
	return id, nil
}

func optionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidArgument, name)
	}
	return v, nil
}

// logFailure logs unexpected failures. Expected outcomes (not found, duplicates, bad input) stay at debug.
func logFailure(logger *log.Logger, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status < http.StatusInternalServerError {
		logger.Debug("request rejected", "code", code, "path", r.URL.Path, "error", err)
		return
	}
	logger.Error("request failed", "code", code, "path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()), "error", err)
}
