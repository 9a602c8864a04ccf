package cfg

type Cfg struct {
	// Storage
	DBPath     string
	PolicyFile string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	BatchSize         int
	APIAccessKey      string

	// LLM extraction
	LLMProvider          string
	LLMModel             string
	LLMAPIKey            string
	LLMAPIURL            string
	LLMTimeout           int
	LLMRequestsPerMinute int
	LLMMaxRetries        int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
