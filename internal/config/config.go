package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	ReportBucket   string
	SNSRegion      string
	LogoutTopicARN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	JWTIssuer         string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	TOTPIssuer string
	TOTPPepper string

	// StepUpDuration is the single source for the step-up validity window.
	StepUpDuration   time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration

	BackchannelPath     string
	BackchannelTimeout  time.Duration
	BackchannelTokenTTL time.Duration

	AllowedOrigins []string // CORS allowed origins

	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-Ip.
	// Enable only when every request arrives through a proxy that sets them.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts   string
	Sessions   string
	Deliveries string
	Clients    string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:   getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Sessions:   getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Deliveries: getEnv("DYNAMO_TABLE_DELIVERIES", "verification_deliveries"),
			Clients:    getEnv("DYNAMO_TABLE_CLIENTS", "clients"),
		},
		ReportBucket:   getEnv("S3_REPORT_BUCKET", "idp-fanout-reports"),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		LogoutTopicARN: getEnv("SNS_LOGOUT_TOPIC_ARN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 8)) * time.Hour,
		JWTIssuer:         getEnv("JWT_ISSUER", "https://id.example.com"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		TOTPIssuer: getEnv("TOTP_ISSUER", "Identity"),
		TOTPPepper: getEnv("TOTP_PEPPER", ""),

		StepUpDuration:   getEnvSeconds("STEP_UP_DURATION_SECONDS", 300),
		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", 3),
		LockoutDuration:  time.Duration(getEnvInt("LOCKOUT_MINUTES", 15)) * time.Minute,

		BackchannelPath:     getEnv("BACKCHANNEL_PATH", "/backchannel/account-deleted"),
		BackchannelTimeout:  getEnvSeconds("BACKCHANNEL_TIMEOUT_SECONDS", 10),
		BackchannelTokenTTL: getEnvSeconds("BACKCHANNEL_TOKEN_TTL_SECONDS", 180),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		TrustProxyHeaders: getEnv("TRUST_PROXY_HEADERS", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
