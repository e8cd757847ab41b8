// internal/workers/evaluation/config.go
package evaluation

type Config struct {
	// RetrievalTopK is how many job description snippets the evaluate stage
	// pulls from the vector store.
	RetrievalTopK int
}

func LoadConfig() *Config {
	return &Config{
		RetrievalTopK: 3,
	}
}
