package config

import "time"

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, postgresURL, sqlitePath string) *Repository {
	return &Repository{
		backend:     backend,
		projectID:   projectID,
		postgresURL: postgresURL,
		sqlitePath:  sqlitePath,
	}
}

// NewEmbeddingForTest creates an Embedding config for testing purposes
func NewEmbeddingForTest(provider, geminiProject, openaiAPIKey string, dimension int) *Embedding {
	return &Embedding{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		openaiAPIKey:   openaiAPIKey,
		dimension:      dimension,
		timeout:        time.Second,
	}
}

// NewPipelineForTest creates a Pipeline config for testing purposes
func NewPipelineForTest(path string) *Pipeline {
	return &Pipeline{path: path}
}
