package internal

import (
	"strings"
	"time"
)

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	GinMode         string        `env:"GIN_MODE,default=release"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	BufferSize      int           `env:"BUFFER_SIZE,default=1024"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ToastCapacity   int           `env:"TOAST_CAPACITY,default=50"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=5s"`
	ConsoleToasts   bool          `env:"CONSOLE_TOASTS,default=true"`

	// Auto-removal policy
	GraceDelay     time.Duration `env:"GRACE_DELAY,default=2s"`
	CountdownStart int           `env:"COUNTDOWN_START,default=60"`
	TickInterval   time.Duration `env:"TICK_INTERVAL,default=1s"`

	// Transfer towards the analysis backend
	BackendURL     string        `env:"BACKEND_URL,required=true"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT,default=30s"`
	BackendRPS     float64       `env:"BACKEND_RPS,default=5"`
	BackendBurst   int           `env:"BACKEND_BURST,default=10"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT,default=2m"`
	MaxUploadSize  int64         `env:"MAX_UPLOAD_SIZE,default=33554432"`
	ProgressStep   int           `env:"PROGRESS_STEP,default=10"`
	ProgressDelay  time.Duration `env:"PROGRESS_DELAY,default=100ms"`
	StrictMime     bool          `env:"STRICT_MIME,default=true"`
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
