package config

// Config is the on-disk daemon configuration. Files may be JSON or YAML;
// YAML is coerced to JSON before strict decoding, so unknown keys are
// rejected in both formats.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// Notifier controls the outbound notification pipeline. If the whole
	// section is omitted the notifier defaults to enabled with a log sink.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	// Storage controls the optional persistence layer. Nil means in-memory
	// only; task state is lost on restart.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Home seeds the in-memory platform simulator.
	Home HomeConfig `json:"home,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the scan/drain/optimize cycle.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// ScanInterval is how often pending tasks are checked for dueness.
	// Default "30s".
	ScanInterval string `json:"scan_interval,omitempty"`
	// DrainInterval is how often one queued task is executed. Default "5s".
	DrainInterval string `json:"drain_interval,omitempty"`
	// OptimizeSpec is a 5-field cron spec for the schedule optimization
	// pass. Default "0 3 * * *".
	OptimizeSpec string `json:"optimize_spec,omitempty"`
	// DeferDelay is how far a constrained or out-prioritized task is pushed
	// into the future. Default "5m".
	DeferDelay string `json:"defer_delay,omitempty"`

	HistorySize int    `json:"history_size,omitempty"`
	Timezone    string `json:"timezone,omitempty"` // IANA name, e.g. "Europe/Amsterdam"

	// TasksFile optionally points at a JSON array of task definitions that
	// is loaded once at startup (ids already known are skipped).
	TasksFile string `json:"tasks_file,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// All durations are Go duration strings.
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	QueueSize   int    `json:"queue_size,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	RetryMax    int    `json:"retry_max,omitempty"`
	RetryBase   string `json:"retry_base,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"`

	// Telegram, when present, adds a Telegram sink next to the log sink.
	Telegram *TelegramSinkConfig `json:"telegram,omitempty"`
}

type TelegramSinkConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./homeauto_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HomeConfig seeds the simulated home platform.
type HomeConfig struct {
	// Presence is the initial presence status ("home", "away", "sleeping").
	Presence string `json:"presence,omitempty"`
	// EnergyPrice is the initial price per kWh; EnergyLevel its bucket
	// ("low", "normal", "high").
	EnergyPrice float64 `json:"energy_price,omitempty"`
	EnergyLevel string  `json:"energy_level,omitempty"`
}
