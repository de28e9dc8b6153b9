package config

const (
	defaultDataDir     = "~/.local/share/recap/data"
	defaultWorkDir     = "~/.local/share/recap/work"
	defaultLogDir      = "~/.local/share/recap/logs"
	defaultMetricsBind = "127.0.0.1:9920"

	defaultChunkSeconds   = 600
	defaultOverlapSeconds = 30

	defaultTranscribeBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscribeModel   = "whisper-1"
	defaultChatBaseURL       = "https://api.openai.com/v1/chat/completions"
	defaultChatModel         = "gpt-4o-mini"
	defaultRequestTimeout    = 120

	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultCommandTimeout = 120

	defaultQueuePollInterval = 5
	defaultChunkWorkers      = 4

	defaultNotifyRequestTimeout = 10

	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
)

// Fixed pipeline internals. These are deliberately not configurable: the
// retry contract and dedup semantics are part of the pipeline's behavior.
const (
	// MinChunkSeconds is the minimum duration for an emitted chunk.
	MinChunkSeconds = 10
	// RetryAttempts is the total attempt budget per remote call.
	RetryAttempts = 3
	// RetryBaseSeconds is the base of the exponential retry backoff.
	RetryBaseSeconds = 2
	// DedupSimilarityThreshold is the action-item fuzzy-match threshold.
	DedupSimilarityThreshold = 0.8
	// PricingCacheSeconds is how long fetched provider pricing is reused.
	PricingCacheSeconds = 3600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
			MetricsBind: defaultMetricsBind,
		},
		Chunking: Chunking{
			ChunkSeconds:   defaultChunkSeconds,
			OverlapSeconds: defaultOverlapSeconds,
		},
		Providers: Providers{
			TranscribeBaseURL: defaultTranscribeBaseURL,
			TranscribeModel:   defaultTranscribeModel,
			ChatBaseURL:       defaultChatBaseURL,
			ChatModel:         defaultChatModel,
			RequestTimeout:    defaultRequestTimeout,
		},
		Tools: Tools{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			CommandTimeout: defaultCommandTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			ChunkWorkers:      defaultChunkWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
