package memory

import (
	"github.com/appu-labs/appu/pkg/domain/interfaces"
)

// Memory keeps everything in process memory. Data is lost on restart; it
// backs development runs and tests.
type Memory struct {
	memory *memoryRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		memory: newMemoryRepository(),
	}
}

func (m *Memory) Memory() interfaces.MemoryRepository {
	return m.memory
}

func (m *Memory) Close() error {
	return nil
}
