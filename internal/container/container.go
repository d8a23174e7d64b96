package container

import (
	"evote-api/internal/config"
	"evote-api/internal/service"
	"evote-api/pkg/logger"
	"evote-api/pkg/redis"
)

// Container holds the process-wide dependencies that exist before the
// database is connected: configuration, logging, the optional cache and
// the admin auth service.
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Auth        *service.AuthService
	Cache       *service.CacheService
}

// New creates a new dependency injection container
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	// Redis is optional: without it every cached view degrades to a
	// direct database read.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		RedisClient: redisClient,
		Auth:        service.NewAuthService(cfg.AdminPassword, cfg.AdminJWTSecret, log.Logger),
		Cache:       service.NewCacheService(redisClient, log.Logger),
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
