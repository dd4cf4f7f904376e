// Package http exposes BAS report endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/moveledger/moveledger/internal/austax"
	"github.com/moveledger/moveledger/internal/bas"
	"github.com/moveledger/moveledger/internal/platform/httpx"
)

// reportBuildGroup collapses concurrent builds of the same period so a
// cache miss is computed once per key.
var reportBuildGroup singleflight.Group

// Handler serves BAS reports.
type Handler struct {
	logger  *slog.Logger
	service *bas.Service
	cache   *bas.Cache
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *bas.Service, cache *bas.Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers BAS report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bas/monthly", h.monthly)
	r.Get("/bas/quarterly", h.quarterly)
	r.Get("/bas/annual", h.annual)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	companyID, year, ok := h.baseParams(w, r)
	if !ok {
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month query parameter is required")
		return
	}
	key := fmt.Sprintf("bas:%d:m:%d-%02d", companyID, year, month)
	var report bas.Report
	loader := func(ctx context.Context) (interface{}, error) {
		return h.service.Monthly(ctx, companyID, year, month)
	}
	if err := h.fetch(r.Context(), key, &report, loader); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) quarterly(w http.ResponseWriter, r *http.Request) {
	companyID, year, ok := h.baseParams(w, r)
	if !ok {
		return
	}
	quarter, err := strconv.Atoi(r.URL.Query().Get("quarter"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "quarter query parameter is required")
		return
	}
	key := fmt.Sprintf("bas:%d:q:%d-%d", companyID, year, quarter)
	var report bas.Report
	loader := func(ctx context.Context) (interface{}, error) {
		return h.service.Quarterly(ctx, companyID, year, quarter)
	}
	if err := h.fetch(r.Context(), key, &report, loader); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) annual(w http.ResponseWriter, r *http.Request) {
	companyID, year, ok := h.baseParams(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("bas:%d:y:%d", companyID, year)
	var summary bas.AnnualSummary
	loader := func(ctx context.Context) (interface{}, error) {
		return h.service.Annual(ctx, companyID, year)
	}
	if err := h.fetch(r.Context(), key, &summary, loader); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// fetch runs the cache lookup inside a singleflight group keyed by the
// versioned cache key.
func (h *Handler) fetch(ctx context.Context, baseKey string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := h.cache.BuildKey(ctx, baseKey)
	if err != nil {
		return err
	}
	resultChan := reportBuildGroup.DoChan(key, func() (interface{}, error) {
		var out interface{}
		err := h.cache.FetchJSON(ctx, key, &out, loader)
		return out, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return remarshal(res.Val, dest)
	}
}

func remarshal(value, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (h *Handler) baseParams(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company_id query parameter is required")
		return 0, 0, false
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "year query parameter is required")
		return 0, 0, false
	}
	return companyID, year, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verr *austax.ValidationError
	if errors.As(err, &verr) {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", verr.Message, verr.Field)
		return
	}
	h.logger.Error("BAS report failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
