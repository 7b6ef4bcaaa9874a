package domain

// VectorConfig holds the vectorization settings shared by the plugin and the seeding tool.
// Both sides must agree on model and dimensions or similarity scores are meaningless.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the configuration matching text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "Cosine",
	}
}
