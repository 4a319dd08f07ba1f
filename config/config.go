package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

type Log struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
	// Outputs are stdout, stderr or file paths.
	Outputs []string `env:"LOG_OUTPUT" envDefault:"stdout" envSeparator:","`
	Rotate  bool     `env:"LOG_ROTATE"`
}

type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR"  envDefault:":5000"`
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	StoreBackend     string `env:"STORE_BACKEND"     envDefault:"memory"`
	SQLitePath       string `env:"SQLITE_PATH"       envDefault:"projects.db"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`
	DynamoDBRegion   string `env:"DYNAMODB_REGION"   envDefault:"us-east-1"`
	DynamoDBTable    string `env:"DYNAMODB_TABLE"    envDefault:"projects"`

	ExportDir     string `env:"EXPORT_DIR"     envDefault:"exports"`
	SoundfontPath string `env:"SOUNDFONT_PATH" envDefault:"soundfonts/default.sf2"`
	FluidsynthBin string `env:"FLUIDSYNTH_BIN" envDefault:"fluidsynth"`
	FFmpegBin     string `env:"FFMPEG_BIN"     envDefault:"ffmpeg"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	SaveDebounce  time.Duration `env:"SAVE_DEBOUNCE"   envDefault:"1s"`
	SaveRetries   int           `env:"SAVE_RETRIES"    envDefault:"3"`
	PeerQueueSize int           `env:"PEER_QUEUE_SIZE" envDefault:"256"`

	Log Log
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "could not parse environment")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case BackendMemory, BackendSQLite, BackendDynamoDB:
	default:
		return errors.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.SaveRetries < 0 {
		return errors.New("SAVE_RETRIES must not be negative")
	}
	if c.PeerQueueSize <= 0 {
		return errors.New("PEER_QUEUE_SIZE must be positive")
	}
	return nil
}
