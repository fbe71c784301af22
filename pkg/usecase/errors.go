package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// Recovered locally: retrieval falls back to keyword search, formation
	// stores the memory without an embedding.
	ErrEmbeddingUnavailable = goerr.New("embedding unavailable")

	// A write against the memory store failed. Formation logs it and moves on.
	ErrStoreWriteFailure = goerr.New("memory store write failed")

	// One child's consolidation pass failed. The sweep continues.
	ErrConsolidationChildFailure = goerr.New("consolidation failed for child")

	// Malformed retrieval parameters
	ErrInvalidQuery = goerr.New("invalid query")
)

// Context keys for error values
const (
	ChildIDKey  = "child_id"
	MemoryIDKey = "memory_id"
)
