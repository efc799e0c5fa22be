package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Capability names reported by the readiness endpoint.
const (
	CapabilityCropRanking       = "crop_ranking"
	CapabilityFertilizerProduct = "fertilizer_product"
	CapabilityChatLLM           = "chat_llm"
)

// Readiness reports which model-backed capabilities are enabled.
// A disabled capability degrades the service without failing it.
type Readiness struct {
	Status       HealthStatus    `json:"status"`
	Time         Timestamp       `json:"time"`
	Capabilities map[string]bool `json:"capabilities"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status                 HealthStatus     `json:"status"`
	Time                   Timestamp        `json:"time"`
	Providers              []ProviderStatus `json:"providers"`
	ActiveDegradationFlags []string         `json:"activeDegradationFlags,omitempty"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
