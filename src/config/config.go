package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTokenPath  = "/run/secrets/screen_schedule/token"
	TokenPathEnvVar   = "AUTH_TOKEN_FILE"
	AltConfigEnvVar   = "SCREEN_SCHEDULE"
	DefaultAPIBaseURL = "http://127.0.0.1:8080/api"
	DefaultHistoryDB  = "screen_schedule.db"

	EngineAuto      = "auto"
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

type LoadOptions struct {
	TokenPathOverride string
	TokenOverride     string
	EngineOverride    string
}

type Config struct {
	Token     string
	TokenPath string

	APIBaseURL    string
	RemoteTimeout time.Duration
	FlowDeadline  time.Duration

	CaptureDelay   time.Duration
	CaptureMaxWait time.Duration
	PollInterval   time.Duration
	// CaptureDisplay of -1 captures the union of all displays.
	CaptureDisplay int
	// CaptureConfirm asks the user once per process before the first capture.
	CaptureConfirm bool

	OCREngine    string
	OCRAssetsDir string
	OCRThreads   int
	OCRMaxSide   int
	OCRLanguage  string

	// Vision engine (OpenRouter).
	APIKey    string
	Model     string
	Providers []string

	HistoryDB string
	// HistoryRetention of zero keeps entries forever.
	HistoryRetention time.Duration
	HistoryPruneCron string

	CopyText          bool
	EnableFileLogging bool
	Hotkey            string

	OverlayX int
	OverlayY int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) file named by SCREEN_SCHEDULE
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	tokenPath := resolveTokenPath(opts, dotenvValues)
	token := resolveToken(tokenPath)
	if override := strings.TrimSpace(opts.TokenOverride); override != "" {
		token = override
	}

	historyDB := DefaultHistoryDB
	if v, ok := os.LookupEnv("HISTORY_DB"); ok {
		historyDB = strings.TrimSpace(v)
	}

	cfg := &Config{
		Token:     token,
		TokenPath: tokenPath,

		APIBaseURL:    strings.TrimRight(getEnvWithDefault("API_BASE_URL", DefaultAPIBaseURL), "/"),
		RemoteTimeout: time.Duration(getEnvPositiveInt("REMOTE_TIMEOUT_SEC", 15)) * time.Second,
		FlowDeadline:  time.Duration(getEnvPositiveInt("FLOW_DEADLINE_SEC", 20)) * time.Second,

		CaptureDelay:   time.Duration(getEnvPositiveInt("CAPTURE_DELAY_MS", 1000)) * time.Millisecond,
		CaptureMaxWait: time.Duration(getEnvPositiveInt("CAPTURE_MAX_WAIT_MS", 3000)) * time.Millisecond,
		PollInterval:   time.Duration(getEnvPositiveInt("CAPTURE_POLL_MS", 100)) * time.Millisecond,
		CaptureDisplay: getEnvInt("CAPTURE_DISPLAY", 0),
		CaptureConfirm: strings.ToLower(os.Getenv("CAPTURE_CONFIRM")) != "false",

		OCREngine:    resolveEngine(opts),
		OCRAssetsDir: os.Getenv("OCR_ASSETS_DIR"),
		OCRThreads:   getEnvPositiveInt("OCR_THREADS", 4),
		OCRMaxSide:   getEnvPositiveInt("OCR_MAX_SIDE", 1600),
		OCRLanguage:  getEnvWithDefault("OCR_LANGUAGE", "eng"),

		APIKey:    os.Getenv("OPENROUTER_API_KEY"),
		Model:     os.Getenv("MODEL"),
		Providers: providers,

		HistoryDB:        historyDB,
		HistoryRetention: time.Duration(getEnvInt("HISTORY_RETENTION_DAYS", 30)) * 24 * time.Hour,
		HistoryPruneCron: getEnvWithDefault("HISTORY_PRUNE_CRON", "@daily"),

		CopyText:          strings.ToLower(os.Getenv("COPY_TEXT")) == "true",
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            getEnvWithDefault("HOTKEY", "Ctrl+Alt+S"),

		OverlayX: getEnvInt("OVERLAY_X", 100),
		OverlayY: getEnvInt("OVERLAY_Y", 300),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(AltConfigEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveTokenPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultTokenPath

	if envPath := strings.TrimSpace(os.Getenv(TokenPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[TokenPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.TokenPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveToken(tokenPath string) string {
	if data, err := os.ReadFile(tokenPath); err == nil {
		if fileToken := strings.TrimSpace(string(data)); fileToken != "" {
			return fileToken
		}
	}

	return strings.TrimSpace(os.Getenv("AUTH_TOKEN"))
}

func resolveEngine(opts LoadOptions) string {
	value := os.Getenv("OCR_ENGINE")
	if override := strings.TrimSpace(opts.EngineOverride); override != "" {
		value = override
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineTesseract:
		return EngineTesseract
	case EngineVision, "llm":
		return EngineVision
	default:
		return EngineAuto
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) int {
	if n := getEnvInt(key, defaultValue); n > 0 {
		return n
	}
	return defaultValue
}
