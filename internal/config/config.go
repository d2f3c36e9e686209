package config

import (
	"fmt"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

// DefaultWelcomeMessage seeds every new conversation.
const DefaultWelcomeMessage = "Welcome to Corporate AI Services. Services are governed under Corporate AI Governance. Use it responsibly. How can I help?"

const (
	defaultTemperature = 0.7
	defaultJWTSecret   = "your-256-bit-secret"
)

// Config is the process-wide configuration. It is read once at startup and
// passed explicitly to the components that need it.
type Config struct {
	// Upstream chat completion endpoint
	APIURL      string
	APIKey      string
	Model       string
	Temperature float32

	WelcomeMessage      string
	UserAvatarPath      string
	AssistantAvatarPath string

	ListenAddr string

	// Session cookie
	SessionCookieName   string
	SessionCookieSecure bool
	JWTSecret           []byte

	// Optional Redis session store
	RedisURL      string
	RedisPassword string

	RateLimit RateLimitConfig
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honoured.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:              GetEnvOrDefault("AIGW_API_URL", ""),
		APIKey:              GetEnvOrDefault("AIGW_API_KEY", ""),
		Model:               GetEnvOrDefault("AI_MODEL", ""),
		Temperature:         parseEnvFloat32("AI_TEMP", defaultTemperature),
		WelcomeMessage:      GetEnvOrDefault("WELCOME_MESSAGE", DefaultWelcomeMessage),
		UserAvatarPath:      GetEnvOrDefault("USER_AVATAR", "./user.png"),
		AssistantAvatarPath: GetEnvOrDefault("ASSISTANT_AVATAR", "./ai.png"),
		ListenAddr:          GetEnvOrDefault("LISTEN_ADDR", ":8080"),
		SessionCookieName:   GetEnvOrDefault("SESSION_COOKIE_NAME", "simplychat_session"),
		SessionCookieSecure: parseEnvBool("SESSION_COOKIE_SECURE", true),
		JWTSecret:           []byte(GetEnvOrDefault("JWT_SECRET", defaultJWTSecret)),
		RedisURL:            GetEnvOrDefault("REDIS_URL", ""),
		RedisPassword:       GetEnvOrDefault("REDIS_PASSWORD", ""),
		RateLimit:           loadRateLimitConfig(),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("AIGW_API_URL environment variable not set")
	}

	if cfg.Model == "" {
		log.Warn().Msg("AI_MODEL environment variable not set - requests will carry an empty model name")
	}

	if cfg.SessionCookieSecure {
		log.Warn().Msg("Session cookie is Secure - browsers keep it only over HTTPS or on localhost; set SESSION_COOKIE_SECURE=false to serve plain HTTP")
	}

	if string(cfg.JWTSecret) == defaultJWTSecret {
		log.Warn().Msg("JWT_SECRET not set - using the development signing secret")
	}

	log.Info().
		Str("endpoint", cfg.APIURL).
		Str("model", cfg.Model).
		Float32("temperature", cfg.Temperature).
		Bool("redis", cfg.RedisURL != "").
		Msg("Configuration loaded")

	return cfg, nil
}
