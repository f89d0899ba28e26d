package entity

// Provider-reported generation statuses. Anything other than succeeded is
// treated as a failed generation by the response pipeline.
const (
	GenerationStatusSucceeded = "succeeded"
	GenerationStatusFailed    = "failed"
)

// GenerationMetrics carries optional timing metrics from the provider.
type GenerationMetrics struct {
	PredictTime float64 `json:"predict_time"`
}

// GenerationResult is the raw response of a generation provider: an
// identifier, a status, an ordered list of ephemeral asset URLs, and the
// model that produced them. It is consumed once by the response pipeline
// and never persisted.
type GenerationResult struct {
	ID      string             `json:"id"`
	Status  string             `json:"status"`
	Output  []string           `json:"output"`
	Model   string             `json:"model"`
	Metrics *GenerationMetrics `json:"metrics,omitempty"`
}

// Succeeded reports whether the provider completed the generation.
func (r GenerationResult) Succeeded() bool {
	return r.Status == GenerationStatusSucceeded
}

// PredictTime returns the provider-reported generation time in seconds,
// or zero when metrics are absent.
func (r GenerationResult) PredictTime() float64 {
	if r.Metrics == nil {
		return 0
	}
	return r.Metrics.PredictTime
}
