package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"

	NotifierLog    = "log"
	NotifierTwilio = "twilio"

	// OTP codes default to 6 digits; OTP_LENGTH may move this within
	// [MinOTPLength, MaxOTPLength].
	MinOTPLength = 4
	MaxOTPLength = 10
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	OTP      OTPConfig
	Notifier NotifierConfig
	Rates    RatesConfig
	LogLevel string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the backend for each shared store.
type StoreConfig struct {
	OTPBackend    string
	LedgerBackend string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type OTPConfig struct {
	Length int
	Expiry time.Duration
	// Retention is the TTL networked stores attach to OTP records. Zero
	// keeps records until they are consumed or overwritten.
	Retention time.Duration
	HashCost  int
}

type NotifierConfig struct {
	Kind             string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioBaseURL    string
	Timeout          time.Duration
}

// RatesConfig holds the fixed UGX per USDT quote.
type RatesConfig struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is loaded first; it never overrides variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			OTPBackend:    strings.ToLower(getEnv("OTP_STORE", BackendMemory)),
			LedgerBackend: strings.ToLower(getEnv("LEDGER_STORE", BackendMemory)),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "UGXchangeTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			Length:    getEnvAsInt("OTP_LENGTH", 6),
			Expiry:    getEnvAsDuration("OTP_EXPIRY", 300*time.Second),
			Retention: getEnvAsDuration("OTP_RETENTION", 0),
			HashCost:  getEnvAsInt("OTP_HASH_COST", 10),
		},
		Notifier: NotifierConfig{
			Kind:             strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:       getEnv("TWILIO_PHONE_NUMBER", ""),
			TwilioBaseURL:    getEnv("TWILIO_BASE_URL", ""),
			Timeout:          getEnvAsDuration("NOTIFIER_TIMEOUT", 15*time.Second),
		},
		Rates: RatesConfig{
			Buy:  getEnvAsDecimal("RATE_BUY", decimal.NewFromInt(3700)),
			Sell: getEnvAsDecimal("RATE_SELL", decimal.NewFromInt(3650)),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.OTPBackend {
	case BackendMemory, BackendRedis, BackendDynamoDB:
	default:
		return fmt.Errorf("OTP_STORE must be %q, %q or %q, got %q", BackendMemory, BackendRedis, BackendDynamoDB, c.Store.OTPBackend)
	}

	switch c.Store.LedgerBackend {
	case BackendMemory, BackendDynamoDB:
	default:
		return fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", BackendMemory, BackendDynamoDB, c.Store.LedgerBackend)
	}

	switch c.Notifier.Kind {
	case NotifierLog:
	case NotifierTwilio:
		if c.Notifier.TwilioAccountSID == "" || c.Notifier.TwilioAuthToken == "" || c.Notifier.TwilioFrom == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required when NOTIFIER=twilio")
		}
	default:
		return fmt.Errorf("NOTIFIER must be %q or %q, got %q", NotifierLog, NotifierTwilio, c.Notifier.Kind)
	}

	if c.OTP.Length < MinOTPLength || c.OTP.Length > MaxOTPLength {
		return fmt.Errorf("OTP_LENGTH must be between %d and %d, got %d", MinOTPLength, MaxOTPLength, c.OTP.Length)
	}

	if c.OTP.HashCost < bcrypt.MinCost || c.OTP.HashCost > bcrypt.MaxCost {
		return fmt.Errorf("OTP_HASH_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.OTP.HashCost)
	}

	if c.OTP.Expiry <= 0 {
		return fmt.Errorf("OTP_EXPIRY must be positive")
	}

	if c.OTP.Retention != 0 && c.OTP.Retention < c.OTP.Expiry {
		return fmt.Errorf("OTP_RETENTION must be zero or at least OTP_EXPIRY (%s)", c.OTP.Expiry)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
