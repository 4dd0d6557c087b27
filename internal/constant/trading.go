package constant

const (
	ProductionEnvironment = "production"

	// DefaultLotSize is the fixed quantity used when a replayed signal
	// becomes an order. Strategies do not control sizing in the replay
	// path.
	DefaultLotSize int64 = 100

	DefaultProgressInterval = 100

	FillStreamName        = "fills"
	FillStreamSubjectAll  = "fills.*"
	FillStreamSubjectData = "fills.executed"
)
