package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/assets"
	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/config"
	"github.com/aigw/simplychat/internal/infrastructure/completion"
	"github.com/aigw/simplychat/internal/infrastructure/redis"
	"github.com/aigw/simplychat/internal/services/session"
	"github.com/aigw/simplychat/pkg/ratelimit"
)

type Services struct {
	config         *config.Config
	redisService   *redis.Service
	controller     *chat.Controller
	sessionService *session.Service
	avatars        *assets.Avatars
	submitLimiter  *ratelimit.Limiter
	memoryStore    *session.MemoryStore
}

// InitializeServices builds every service from cfg. Redis is optional; when
// it is unavailable conversations are kept in memory.
func InitializeServices(cfg *config.Config) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	log.Info().Msg("Initializing core services")

	redisService := redis.NewService(cfg.RedisURL, cfg.RedisPassword)

	var (
		store       session.Store
		memoryStore *session.MemoryStore
	)
	if redisService != nil {
		store = session.NewRedisStore(redisService, session.Lifetime())
		log.Info().Msg("Using Redis conversation store")
	} else {
		memoryStore = session.NewMemoryStore(session.Lifetime())
		store = memoryStore
		log.Info().Msg("Using in-memory conversation store")
	}

	var opts []completion.Option
	if cfg.APIKey != "" {
		opts = append(opts, completion.WithAPIKey(cfg.APIKey))
	}
	client := completion.NewClient(cfg.APIURL, opts...)

	controller := chat.NewController(chat.Settings{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Greeting:    cfg.WelcomeMessage,
	}, client)

	sessionService := session.NewService(store, controller, session.Options{
		CookieName: cfg.SessionCookieName,
		Secret:     cfg.JWTSecret,
		Secure:     cfg.SessionCookieSecure,
	})

	avatars := assets.LoadAvatars(cfg.UserAvatarPath, cfg.AssistantAvatarPath)

	log.Info().Msg("All services initialized successfully")

	return &Services{
		config:         cfg,
		redisService:   redisService,
		controller:     controller,
		sessionService: sessionService,
		avatars:        avatars,
		submitLimiter:  ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxHits),
		memoryStore:    memoryStore,
	}, nil
}

func (s *Services) GetConfig() *config.Config {
	return s.config
}

func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

func (s *Services) GetAvatars() *assets.Avatars {
	return s.avatars
}

func (s *Services) GetSubmitLimiter() *ratelimit.Limiter {
	return s.submitLimiter
}

// Submit runs one submission for a session and persists the result. It
// returns session.ErrSubmitInProgress when the session is busy and the
// prompt validation errors of the chat package.
func (s *Services) Submit(ctx context.Context, sessionID, prompt string) (*chat.Conversation, *chat.Outcome, error) {
	if err := chat.ValidatePrompt(prompt); err != nil {
		return nil, nil, err
	}

	if err := s.sessionService.BeginSubmit(sessionID); err != nil {
		return nil, nil, err
	}
	defer s.sessionService.EndSubmit(sessionID)

	conv, err := s.sessionService.Conversation(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}

	outcome, err := s.controller.Submit(ctx, conv, prompt)
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessionService.Save(ctx, sessionID, conv); err != nil {
		return nil, nil, fmt.Errorf("save conversation: %w", err)
	}

	return conv, outcome, nil
}

// RunJanitor drops expired in-memory conversations and idle rate limit
// entries every interval until ctx is done.
func (s *Services) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.submitLimiter.Prune()
			if s.memoryStore != nil {
				if n := s.memoryStore.Sweep(); n > 0 {
					log.Debug().Int("conversations", n).Msg("Dropped expired conversations")
				}
			}
		}
	}
}

// Close releases external connections.
func (s *Services) Close() error {
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
