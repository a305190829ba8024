package app

import (
	"context"
	"prompt-manager/auth"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/config"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/llm"
	"prompt-manager/internal/oplog"
	"prompt-manager/internal/prompt"
	"prompt-manager/internal/sysconfig"
	"prompt-manager/internal/tag"
	"prompt-manager/internal/testrun"
	"prompt-manager/internal/user"

	"gorm.io/gorm"
)

// App holds every service behind the HTTP surface.
type App struct {
	Config   config.Config
	Users    user.Service
	Prompts  prompt.Service
	Tags     tag.Service
	Tests    testrun.Service
	Settings sysconfig.Service
	Activity oplog.Service
}

// New wires the services over one database. Every mutation is reported to
// recorder.
func New(cfg config.Config, db *gorm.DB, recorder audit.Recorder, runner llm.Runner, hasher auth.Hasher) *App {
	settings := sysconfig.NewService(crud.NewService(db, sysconfig.Schema(), recorder))

	prompts := crud.NewService(db, prompt.Schema(), recorder)
	promptService := prompt.NewService(prompt.NewRepository(db), prompts, prompt.NewGrantStore(prompts))

	users := user.NewService(
		user.NewRepository(db),
		crud.NewService(db, user.Schema(), recorder),
		hasher,
		user.Options{
			MinPasswordLength: cfg.PasswordMinLength,
			RegistrationOpen: func(ctx context.Context) bool {
				return cfg.EnableRegistration && settings.Flag(ctx, "registration_enabled", true)
			},
		},
	)

	return &App{
		Config:   cfg,
		Users:    users,
		Prompts:  promptService,
		Tags:     tag.NewService(crud.NewService(db, tag.Schema(), recorder)),
		Tests:    testrun.NewService(promptService, crud.NewService(db, testrun.Schema(), recorder), runner, cfg.ModelTimeout),
		Settings: settings,
		Activity: oplog.NewService(db),
	}
}

// NewRunner registers a provider for every configured API key. The OpenAI
// provider is also registered without a key when a base URL points at a
// compatible local server.
func NewRunner(cfg config.Config) *llm.Registry {
	var providers []llm.Provider
	if cfg.OpenAIAPIKey != "" || cfg.OpenAIBaseURL != "" {
		providers = append(providers, llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	}
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, llm.NewAnthropicProvider(cfg.AnthropicAPIKey, ""))
	}

	defaultModel := cfg.OpenAIModel
	if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" && cfg.AnthropicAPIKey != "" {
		defaultModel = cfg.AnthropicModel
	}
	return llm.NewRegistry(defaultModel, providers)
}
