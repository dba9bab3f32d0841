package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/weatherlens/weatherlens/internal/api/models"
	"github.com/weatherlens/weatherlens/internal/api/response"
	"github.com/weatherlens/weatherlens/internal/provider/resilience"
)

// readyTimeout bounds each readiness probe.
const readyTimeout = 2 * time.Second

// Check probes a dependency. A nil error means it is usable.
type Check func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    map[string]Check
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry and checks may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, checks map[string]Check) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		checks:    checks,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - every dependency check must
// pass.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	details := make(map[string]interface{}, len(subsystems))
	status := models.HealthStatusOK
	for _, s := range subsystems {
		details[s.Name] = s.Status
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status:  status,
		Time:    models.Timestamp(h.now()),
		Details: details,
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
// An open provider circuit fails the system, a probing one degrades it.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Version:    h.version,
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providers(),
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worst(status.Status, p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		err := h.checks[name](checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.registry.All()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, health := range all {
		p := models.ProviderStatus{
			Provider:      health.Name,
			Status:        providerStatus(health.CircuitState),
			CircuitState:  health.CircuitState.String(),
			LastSuccessAt: models.TimestampPtr(health.LastSuccessAt),
			LastFailureAt: models.TimestampPtr(health.LastFailureAt),
		}
		if health.LastError != "" {
			msg := health.LastError
			p.Message = &msg
		}
		out = append(out, p)
	}
	return out
}

func providerStatus(state gobreaker.State) models.HealthStatus {
	switch state {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
