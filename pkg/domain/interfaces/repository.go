package interfaces

// Repository is the Memory Store. Backends: memory, firestore, postgres, sqlite.
type Repository interface {
	Memory() MemoryRepository
	Close() error
}
