package handler

import (
	"net/http"
	"time"

	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

// Capabilities records which model-backed features were enabled at startup.
type Capabilities struct {
	CropRanking       bool
	FertilizerProduct bool
	ChatLLM           bool
}

func (c Capabilities) asMap() map[string]bool {
	return map[string]bool{
		models.CapabilityCropRanking:       c.CropRanking,
		models.CapabilityFertilizerProduct: c.FertilizerProduct,
		models.CapabilityChatLLM:           c.ChatLLM,
	}
}

func (c Capabilities) disabled() []string {
	enabled := c.asMap()
	var out []string
	for _, name := range []string{
		models.CapabilityCropRanking,
		models.CapabilityFertilizerProduct,
		models.CapabilityChatLLM,
	} {
		if !enabled[name] {
			out = append(out, name+"_disabled")
		}
	}
	return out
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version      string
	buildTime    string
	registry     *resilience.Registry
	capabilities Capabilities
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, capabilities Capabilities) *OpsHandler {
	return &OpsHandler{
		version:      version,
		buildTime:    buildTime,
		registry:     registry,
		capabilities: capabilities,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - reports enabled capabilities.
// Disabled capabilities degrade readiness but the service keeps serving.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	if len(h.capabilities.disabled()) > 0 {
		status = models.HealthStatusDegraded
	}
	response.JSON(w, r, http.StatusOK, models.Readiness{
		Status:       status,
		Time:         models.Timestamp(time.Now()),
		Capabilities: h.capabilities.asMap(),
	})
}

// SystemStatus handles GET /v1/ops/status - circuit state per upstream.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:                 models.HealthStatusOK,
		Time:                   models.Timestamp(time.Now()),
		Providers:              []models.ProviderStatus{},
		ActiveDegradationFlags: h.capabilities.disabled(),
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = models.HealthStatusDegraded
	}

	if h.registry != nil {
		for _, u := range h.registry.Snapshot() {
			ps := providerStatus(u)
			status.Providers = append(status.Providers, ps)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(u *resilience.UpstreamHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     u.Name,
		CircuitState: u.CircuitState.String(),
	}
	switch u.Status() {
	case resilience.StatusUp:
		ps.Status = models.HealthStatusOK
	case resilience.StatusDegraded:
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusFail
	}
	if u.LastSuccessAt != nil {
		ts := models.Timestamp(*u.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if u.LastFailureAt != nil {
		ts := models.Timestamp(*u.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if u.LastError != "" {
		msg := u.LastError
		ps.Message = &msg
	}
	return ps
}
