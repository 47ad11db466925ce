package main

import (
	"fmt"

	"github.com/calloway/dispatchline/internal/alertctx"
	"github.com/calloway/dispatchline/internal/config"
	"github.com/calloway/dispatchline/internal/db"
	"github.com/calloway/dispatchline/internal/gateway/mirror"
	"github.com/calloway/dispatchline/internal/gateway/twilio"
	"github.com/calloway/dispatchline/internal/notify"
	"github.com/calloway/dispatchline/internal/reply"
	"gorm.io/gorm"
)

// app bundles the wired components commands run against.
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	scheduler   *notify.Scheduler
	interpreter *reply.Interpreter
}

// buildApp loads config, connects to the database, and wires the scheduler
// and interpreter stacks.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	gw, err := twilio.NewClient(twilio.ClientOpts{
		AccountSID: cfg.Gateway.AccountSID,
		AuthToken:  cfg.Gateway.AuthToken,
		FromNumber: cfg.Gateway.FromNumber,
	})
	if err != nil {
		return nil, err
	}

	mir, err := mirror.New(cfg.Mirror)
	if err != nil {
		return nil, err
	}

	contexts, err := alertctx.NewStore(alertctx.StoreOpts{
		DB:     gormDB,
		Window: cfg.ContextWindow(),
	})
	if err != nil {
		return nil, err
	}

	scheduler, err := notify.NewScheduler(notify.SchedulerOpts{
		DB:       gormDB,
		Gateway:  gw,
		Contexts: contexts,
		Mirror:   mir,
		Cooldown: cfg.Cooldown(),
	})
	if err != nil {
		return nil, err
	}

	interpreter, err := reply.NewInterpreter(reply.InterpreterOpts{
		DB:       gormDB,
		Contexts: contexts,
		Gateway:  gw,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, db: gormDB, scheduler: scheduler, interpreter: interpreter}, nil
}
