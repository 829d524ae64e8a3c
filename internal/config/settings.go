package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"github.com/AnMaster15/mashupp/internal/model"
)

// SegmentOrder selects how fetched clips are ordered in the mashup
type SegmentOrder string

const (
	// OrderCompletion keeps clips in the order their downloads finished
	OrderCompletion SegmentOrder = "completion"
	// OrderRank re-sorts clips by their original search rank
	OrderRank SegmentOrder = "rank"
)

// Environment keys
const (
	KeyAPIKey        = "YOUTUBE_API_KEY"
	KeySenderEmail   = "SENDER_EMAIL"
	KeyEmailPassword = "EMAIL_PASSWORD"
	KeyQuery         = "MASHUP_QUERY"
	KeyMaxResults    = "MASHUP_MAX_RESULTS"
	KeyWorkers       = "MASHUP_WORKERS"
	KeyOrder         = "MASHUP_ORDER"
	KeyFetchRate     = "MASHUP_FETCH_RATE"
	KeyPlaylistID    = "MASHUP_PLAYLIST_ID"
	KeyWorkDir       = "MASHUP_WORK_DIR"
	KeySMTPHost      = "SMTP_HOST"
	KeySMTPPort      = "SMTP_PORT"
	KeySubject       = "MASHUP_SUBJECT"
	KeyBody          = "MASHUP_BODY"
	KeyFFmpegPath    = "FFMPEG_PATH"
	KeyFFprobePath   = "FFPROBE_PATH"
	KeyYTDLPPath     = "YTDLP_PATH"
	KeyInstallYTDLP  = "MASHUP_INSTALL_YTDLP"
	KeySearchTimeout = "SEARCH_TIMEOUT"
	KeyLogLevel      = "LOG_LEVEL"
)

// Default values
const (
	DefaultQuery         = "Sharry Maan"
	DefaultMaxResults    = 20
	DefaultOrder         = OrderCompletion
	DefaultSMTPHost      = "smtp.gmail.com"
	DefaultSMTPPort      = 587
	DefaultSubject       = "Your YouTube Mashup"
	DefaultBody          = "Please find attached your custom YouTube mashup."
	DefaultFFmpegPath    = "ffmpeg"
	DefaultFFprobePath   = "ffprobe"
	DefaultSearchTimeout = 15 * time.Second
	DefaultLogLevel      = "info"
	DefaultEnvFile       = ".env"
)

// Bounds
const (
	MinMaxResults = 1
	MaxMaxResults = 50
	MinWorkers    = 1
	MaxWorkers    = 32
)

// Config is built once at startup and passed to every component
type Config struct {
	APIKey        string
	SenderEmail   string
	EmailPassword string

	Query      string
	MaxResults int
	PlaylistID string

	Workers   int
	Order     SegmentOrder
	FetchRate float64

	WorkDir string

	SMTPHost string
	SMTPPort int
	Subject  string
	Body     string

	FFmpegPath   string
	FFprobePath  string
	YTDLPPath    string
	InstallYTDLP bool

	SearchTimeout time.Duration
	LogLevel      string
}

// Load reads an optional .env file and then the process environment.
// Values are clamped into range; missing secrets are reported by Validate.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %v", model.ErrConfig, f, err)
		}
	}

	installYTDLP, err := parseBool(KeyInstallYTDLP, env.Str(KeyInstallYTDLP, "false"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIKey:        strings.TrimSpace(env.Str(KeyAPIKey, "")),
		SenderEmail:   strings.TrimSpace(env.Str(KeySenderEmail, "")),
		EmailPassword: env.Str(KeyEmailPassword, ""),
		Query:         env.Str(KeyQuery, DefaultQuery),
		MaxResults:    ClampMaxResults(env.Int(KeyMaxResults, DefaultMaxResults)),
		PlaylistID:    strings.TrimSpace(env.Str(KeyPlaylistID, "")),
		Workers:       ClampWorkers(env.Int(KeyWorkers, runtime.NumCPU())),
		Order:         SegmentOrder(strings.ToLower(env.Str(KeyOrder, string(DefaultOrder)))),
		FetchRate:     env.Float(KeyFetchRate, 0),
		WorkDir:       env.Str(KeyWorkDir, os.TempDir()),
		SMTPHost:      env.Str(KeySMTPHost, DefaultSMTPHost),
		SMTPPort:      env.Int(KeySMTPPort, DefaultSMTPPort),
		Subject:       env.Str(KeySubject, DefaultSubject),
		Body:          env.Str(KeyBody, DefaultBody),
		FFmpegPath:    env.Str(KeyFFmpegPath, DefaultFFmpegPath),
		FFprobePath:   env.Str(KeyFFprobePath, DefaultFFprobePath),
		YTDLPPath:     env.Str(KeyYTDLPPath, ""),
		InstallYTDLP:  installYTDLP,
		SearchTimeout: env.Duration(KeySearchTimeout, DefaultSearchTimeout),
		LogLevel:      env.Str(KeyLogLevel, DefaultLogLevel),
	}
	return cfg, nil
}

// Validate reports every missing secret and invalid value at once
func (c *Config) Validate() error {
	var problems []string

	if c.APIKey == "" && c.PlaylistID == "" {
		problems = append(problems, KeyAPIKey+" is not set")
	}
	if c.SenderEmail == "" {
		problems = append(problems, KeySenderEmail+" is not set")
	}
	if c.EmailPassword == "" {
		problems = append(problems, KeyEmailPassword+" is not set")
	}
	if strings.TrimSpace(c.Query) == "" && c.PlaylistID == "" {
		problems = append(problems, KeyQuery+" is empty")
	}
	if c.Order != OrderCompletion && c.Order != OrderRank {
		problems = append(problems, fmt.Sprintf("%s must be %q or %q, got %q", KeyOrder, OrderCompletion, OrderRank, c.Order))
	}
	if c.FetchRate < 0 {
		problems = append(problems, KeyFetchRate+" must not be negative")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("%s out of range: %d", KeySMTPPort, c.SMTPPort))
	}
	if c.SearchTimeout <= 0 {
		problems = append(problems, KeySearchTimeout+" must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ClampMaxResults keeps the result count inside the search API range
func ClampMaxResults(n int) int {
	if n < MinMaxResults {
		return MinMaxResults
	}
	if n > MaxMaxResults {
		return MaxMaxResults
	}
	return n
}

// ClampWorkers keeps the pool size within sane bounds
func ClampWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

func parseBool(key, raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", model.ErrConfig, key, raw)
	}
	return v, nil
}
