package app

import (
	"context"
	"fmt"

	"github.com/ninehub/storefront/config"
	"github.com/ninehub/storefront/handlers"
	"github.com/ninehub/storefront/middleware"
	"github.com/ninehub/storefront/repositories"
	"github.com/ninehub/storefront/repositories/postgres"
	redisstore "github.com/ninehub/storefront/repositories/redis"
	"github.com/ninehub/storefront/services"
	"github.com/ninehub/storefront/services/email"
	"github.com/ninehub/storefront/tokens"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *goredis.Client // nil unless the token store is Redis
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users  repositories.UserRepository
	Tokens repositories.TokenRepository

	// Services
	Validator    *tokens.Validator
	UserService  *services.UserService
	TokenService *services.TokenService
	OrderEmails  *email.OrderEmailService

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	UserHandler    *handlers.UserHandler
	EmailHandler   *handlers.EmailHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRepositories(ctx); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHandlers()

	logger.Info("dependencies initialized",
		zap.String("environment", cfg.Environment),
		zap.String("token_store", cfg.TokenStore.Backend),
		zap.String("lookup_failure_policy", cfg.Auth.LookupFailurePolicy))

	return deps, nil
}

func (d *Dependencies) initDatabase(ctx context.Context) error {
	factory, err := postgres.NewRepositoryFactory(d.Config, d.Logger)
	if err != nil {
		return err
	}
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if d.Config.Database.InitSchema {
		if err := d.DB.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func (d *Dependencies) initRepositories(ctx context.Context) error {
	repos := d.RepoFactory.NewRepositories()
	d.Users = repos.Users
	d.Tokens = repos.Tokens

	if d.Config.TokenStore.Backend != config.TokenStoreRedis {
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     d.Config.Redis.Addr,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
	})
	d.Redis = client

	store, err := redisstore.New(redisstore.Config{
		Client:    client,
		KeyPrefix: d.Config.Redis.KeyPrefix,
		Logger:    d.Logger,
	})
	if err != nil {
		return err
	}
	if err := store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis unreachable at %s: %w", d.Config.Redis.Addr, err)
	}
	d.Tokens = store

	d.Logger.Info("using redis token store", zap.String("addr", d.Config.Redis.Addr))
	return nil
}

// initServices builds the token validator, services and auth middleware.
// A JWKS key set is refreshed in the background for as long as ctx lives.
func (d *Dependencies) initServices(ctx context.Context) error {
	validator, err := tokens.NewValidator(ctx, tokens.Config{
		Secret:  d.Config.JWT.Secret,
		JWKSURL: d.Config.JWT.JWKSURL,
		Issuer:  d.Config.JWT.Issuer,
		Leeway:  d.Config.JWT.Leeway,
	})
	if err != nil {
		return fmt.Errorf("token validator: %w", err)
	}
	d.Validator = validator

	d.UserService = services.NewUserService(d.Users, d.Logger)
	d.TokenService = services.NewTokenService(d.Tokens, d.Logger)

	mailer, err := email.NewSMTPMailer(email.SMTPConfig{
		Host:     d.Config.Mail.Host,
		Port:     d.Config.Mail.Port,
		Username: d.Config.Mail.Username,
		Password: d.Config.Mail.Password,
		TLS:      d.Config.Mail.TLS,
		Timeout:  d.Config.Mail.Timeout,
	})
	if err != nil {
		return fmt.Errorf("smtp mailer: %w", err)
	}
	d.OrderEmails = email.NewOrderEmailService(mailer, d.Config.Mail.From, d.Config.Mail.FromName, d.Logger)

	authenticator := middleware.NewRequestAuthenticator(d.Validator, d.UserService, d.TokenService, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(authenticator, d.Config.Auth.LookupFailurePolicy, d.Logger)
	return nil
}

func (d *Dependencies) initHandlers() {
	d.UserHandler = handlers.NewUserHandler(d.UserService, d.TokenService, d.Logger)
	d.EmailHandler = handlers.NewEmailHandler(d.OrderEmails, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)
	if store, ok := d.Tokens.(*redisstore.TokenRepository); ok {
		d.HealthHandler.WithCheck("redis", store.HealthCheck)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	d.Logger.Info("all dependencies closed successfully")
	return nil
}
