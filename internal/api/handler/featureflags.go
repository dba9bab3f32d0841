package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/api/middleware"
	"github.com/weatherlens/weatherlens/internal/api/models"
	"github.com/weatherlens/weatherlens/internal/api/response"
	"github.com/weatherlens/weatherlens/internal/featureflags"
)

// maxFlagBody bounds the upsert request body.
const maxFlagBody = 64 << 10

// boolFlags are the well-known flags that only accept booleans.
var boolFlags = map[string]bool{
	featureflags.FlagIgnoreWhileLoading: true,
	featureflags.FlagAutoLoadLastCity:   true,
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - every flag,
// defaults included, sorted by key.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	all := h.service.GetAllFlags(r.Context())

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, f := range all {
		list.Items = append(list.Items, *f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })

	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - sets every flag
// in the body in one write.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []featureflags.FlagUpdate `json:"items"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFlagBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if fieldErrs := validateUpdates(req.Items); len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid feature flag update", fieldErrs)
		return
	}

	flags := make([]*featureflags.Flag, 0, len(req.Items))
	for _, u := range req.Items {
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		if errors.Is(err, featureflags.ErrNoRepository) {
			response.ServiceUnavailable(w, r, "feature flags are read-only in this deployment")
			return
		}
		h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	h.logger.Info().
		Str("subject", middleware.GetSubject(r.Context())).
		Int("count", len(flags)).
		Msg("feature flags updated via admin API")

	response.NoContent(w, r)
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - drops the
// stored override so the configured default applies again.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	err := h.service.ResetFlag(r.Context(), key)
	switch {
	case err == nil:
	case errors.Is(err, featureflags.ErrFlagNotFound):
		response.NotFound(w, r, fmt.Sprintf("no override stored for %q", key))
		return
	case errors.Is(err, featureflags.ErrNoRepository):
		response.ServiceUnavailable(w, r, "feature flags are read-only in this deployment")
		return
	default:
		h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("failed to reset feature flag")
		response.InternalError(w, r, "failed to reset feature flag")
		return
	}

	h.logger.Info().
		Str("subject", middleware.GetSubject(r.Context())).
		Str("flag", key).
		Msg("feature flag reset via admin API")

	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func validateUpdates(items []featureflags.FlagUpdate) []models.FieldError {
	if len(items) == 0 {
		return []models.FieldError{{Field: "items", Message: "at least one flag is required", Code: "REQUIRED"}}
	}

	var errs []models.FieldError
	seen := make(map[string]bool, len(items))
	for i, u := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case u.Key == "":
			errs = append(errs, models.FieldError{Field: field + ".key", Message: "required", Code: "REQUIRED"})
		case seen[u.Key]:
			errs = append(errs, models.FieldError{Field: field + ".key", Message: "duplicate key", Code: "DUPLICATE"})
		case u.Value == nil:
			errs = append(errs, models.FieldError{Field: field + ".value", Message: "required", Code: "REQUIRED"})
		case boolFlags[u.Key]:
			if _, ok := u.Value.(bool); !ok {
				errs = append(errs, models.FieldError{Field: field + ".value", Message: "must be a boolean", Code: "INVALID"})
			}
		}
		seen[u.Key] = true
	}
	return errs
}
