package domain

// KeyPrefix namespaces every key docqa writes into a shared Redis or Valkey.
const KeyPrefix = "docqa:"

// VectorConfig holds internal vectorization settings.
type VectorConfig struct {
	Model               string
	Dimensions          int
	DistanceMetric      string
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns the defaults for a local nomic-embed-text model served by Ollama.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "nomic-embed-text",
		Dimensions:     768,
		DistanceMetric: "cosine",
	}
}
