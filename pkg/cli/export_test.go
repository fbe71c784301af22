package cli

// Exported for testing
var (
	GetIndexConfig     = getIndexConfig
	PrintConsolidation = printConsolidation
	PrintSweep         = printSweep
	PrintChildContext  = printChildContext
	PrintMemories      = printMemories
)

var PrintIndexDiff = printIndexDiff
