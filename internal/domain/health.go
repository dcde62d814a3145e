package domain

// HealthStatus is the body of the liveness endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
