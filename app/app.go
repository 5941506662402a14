// Package app wires the license shop bot: screen handlers, keyboards,
// and the dispatch registry on top of the telegram core.
package app

import (
	"context"
	"time"

	"github.com/veisher/licensebot/core/bootstrap"
	coreconfig "github.com/veisher/licensebot/core/config"
	coretelegram "github.com/veisher/licensebot/core/telegram"
	"github.com/veisher/licensebot/core/telegram/commands"
	"github.com/veisher/licensebot/core/telegram/router"
	"github.com/veisher/licensebot/core/telegram/sender"
	"github.com/veisher/licensebot/core/telegram/state"
	"github.com/veisher/licensebot/services/licensing"
)

// awaitingStrategyInput marks a user who has been shown the price lookup
// prompt and is expected to reply with a strategy number.
const awaitingStrategyInput state.State = "awaiting_strategy_input"

// LicensingClient is the remote service surface the handlers depend on.
type LicensingClient interface {
	FetchPrice(ctx context.Context, strategyID string) (licensing.PriceQuote, error)
	FetchLicenses(ctx context.Context) ([]licensing.License, error)
	SubmitPayment(ctx context.Context, strategyID string) error
}

// App holds the bot's dependencies: configuration, the licensing client,
// and the in-memory session tracker. One instance per process.
type App struct {
	cfg        *coreconfig.Config
	licensing  LicensingClient
	sessions   state.Manager
	dispatcher *sender.Dispatcher
	startedAt  time.Time
}

// New constructs the application with a fresh in-memory session tracker.
func New(cfg *coreconfig.Config, client LicensingClient) *App {
	a := &App{
		cfg:       cfg,
		licensing: client,
		sessions:  state.NewMemoryManager(),
		startedAt: time.Now(),
	}
	// free text while awaiting input resolves to the same lookup handler
	// as the fallback route
	state.RegisterHandler(awaitingStrategyInput, a.handleStrategyInput)
	return a
}

// Bootstrap initializes logging and the shared HTTP pool, then builds the
// application around a real licensing client.
func Bootstrap(cfg *coreconfig.Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return New(cfg, licensing.NewClient(cfg.Services, res.HTTPClient)), nil
}

// Config carries the core configuration for the cmd runner.
type Config struct {
	Core coreconfig.Config `yaml:",inline"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Core }

// LoadConfig reads the YAML configuration with env overrides applied.
func LoadConfig(path string) (*Config, error) {
	core, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &Config{Core: *core}, nil
}

// Registry builds the dispatch table: commands, callback actions, and the
// free-text fallback.
func (a *App) Registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Runtime statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(actionCheckPrice, a.handlePricePrompt)
	_ = reg.RegisterCallback(actionLicenses, a.handleLicenses)
	_ = reg.RegisterCallback(actionMainMenu, a.handleMainMenu)
	_ = reg.RegisterCallback(actionPay, a.handlePayment)

	reg.SetTextFallback(a.handleStrategyInput)
	reg.SetCallbackNotFound(a.handleCallbackMiss)

	return reg
}

// TelegramRunOptions assembles routes, middlewares, and the outbound
// dispatcher for the telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := a.Registry()
	a.dispatcher = sender.NewDispatcher(sender.Options{})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
		Notify:  a.notifyFailure,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		Notify: a.notifyFailure,
	}))
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{
		Notify: a.notifyFailure,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil, a.notifyFailure),
		Routes:      routes,
	}, nil
}

func (a *App) uptime() time.Duration {
	return time.Since(a.startedAt)
}
