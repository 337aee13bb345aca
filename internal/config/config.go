package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting services.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	DataDir        string

	MySQLDSN             string
	MySQLMaxOpenConns    int
	MySQLMaxIdleConns    int
	MySQLConnMaxLifetime time.Duration

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	TextModel      string
	ImageModel     string
	RequestTimeout time.Duration

	JWTSecret  string
	SessionTTL time.Duration

	OTPTTL         time.Duration
	OTPMaxAttempts int
	SMSProvider    string
	SMSGatewayURL  string
	SMSGatewayKey  string

	ShareTTL time.Duration

	ReminderPollInterval time.Duration

	// Credit policy knobs. The challenge thresholds are product constants
	// that marketing likes to tune, so they live here instead of the code.
	SummaryCost             int
	EssayCost               int
	EssayImageSurcharge     int
	QuizBaseCost            int
	QuizLongSurcharge       int
	QuizLongThreshold       int
	QuizHardSurcharge       int
	ChallengeMinQuestions   int
	ChallengeBonus          int
	ChallengeBonusPercent   int
	FreePlanCredits         int
	StarterPlanCredits      int
	ScholarPlanCredits      int
	AchieverPlanCredits     int
	StarterPlanPriceMinor   int
	ScholarPlanPriceMinor   int
	AchieverPlanPriceMinor  int
	PlanCurrency            string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// S3Enabled reports whether the optional image upload bucket is configured.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		DataDir:        getEnv("DATA_DIR", "data"),

		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		TextModel:      getEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		ImageModel:     getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		RequestTimeout: time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 120)),

		MySQLMaxOpenConns:    getInt("MYSQL_MAX_OPEN_CONNS", 10),
		MySQLMaxIdleConns:    getInt("MYSQL_MAX_IDLE_CONNS", 5),
		MySQLConnMaxLifetime: time.Minute * time.Duration(getInt("MYSQL_CONN_MAX_LIFETIME_MINUTES", 5)),

		SessionTTL: time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 720)),

		OTPTTL:         time.Minute * time.Duration(getInt("OTP_TTL_MINUTES", 5)),
		OTPMaxAttempts: getInt("OTP_MAX_ATTEMPTS", 5),
		SMSProvider:    strings.ToLower(getEnv("SMS_PROVIDER", "console")),
		SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey:  os.Getenv("SMS_GATEWAY_KEY"),

		ShareTTL: time.Hour * 24 * time.Duration(getInt("SHARE_TTL_DAYS", 30)),

		ReminderPollInterval: time.Second * time.Duration(getInt("REMINDER_POLL_SECONDS", 10)),

		SummaryCost:           getInt("CREDIT_SUMMARY_COST", 10),
		EssayCost:             getInt("CREDIT_ESSAY_COST", 10),
		EssayImageSurcharge:   getInt("CREDIT_ESSAY_IMAGE_SURCHARGE", 5),
		QuizBaseCost:          getInt("CREDIT_QUIZ_BASE_COST", 10),
		QuizLongSurcharge:     getInt("CREDIT_QUIZ_LONG_SURCHARGE", 5),
		QuizLongThreshold:     getInt("CREDIT_QUIZ_LONG_THRESHOLD", 10),
		QuizHardSurcharge:     getInt("CREDIT_QUIZ_HARD_SURCHARGE", 5),
		ChallengeMinQuestions: getInt("CHALLENGE_MIN_QUESTIONS", 10),
		ChallengeBonus:        getInt("CHALLENGE_BONUS_CREDITS", 50),
		ChallengeBonusPercent: getInt("CHALLENGE_BONUS_PERCENT", 75),

		FreePlanCredits:        getInt("PLAN_FREE_CREDITS", 100),
		StarterPlanCredits:     getInt("PLAN_STARTER_CREDITS", 500),
		ScholarPlanCredits:     getInt("PLAN_SCHOLAR_CREDITS", 1200),
		AchieverPlanCredits:    getInt("PLAN_ACHIEVER_CREDITS", 3000),
		StarterPlanPriceMinor:  getInt("PLAN_STARTER_PRICE_MINOR_UNITS", 9900),
		ScholarPlanPriceMinor:  getInt("PLAN_SCHOLAR_PRICE_MINOR_UNITS", 19900),
		AchieverPlanPriceMinor: getInt("PLAN_ACHIEVER_PRICE_MINOR_UNITS", 39900),
		PlanCurrency:           getEnv("PLAN_CURRENCY", "INR"),

		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        os.Getenv("S3_REGION"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:  getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:        getEnv("S3_PREFIX", "illustrations"),
	}

	// MySQL is optional: without it the service runs on the in-memory
	// fallback and sharing is disabled.
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	var missing []string
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.SMSProvider == "gateway" {
		if cfg.SMSGatewayURL == "" {
			missing = append(missing, "SMS_GATEWAY_URL")
		}
		if cfg.SMSGatewayKey == "" {
			missing = append(missing, "SMS_GATEWAY_KEY")
		}
	}
	if cfg.S3Enabled() {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// No env file is fine; the process environment may carry everything.
	return nil
}
