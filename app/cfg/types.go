package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	FeedsDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Ingestion limits
	DiscoveryCacheSize int
	MaxDocumentSize    int64

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
