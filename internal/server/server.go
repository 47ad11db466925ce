// Package server exposes the webhook surface: voice-agent intake, inbound
// SMS, delivery status callbacks, and the queue drain trigger.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/calloway/dispatchline/internal/config"
	"github.com/calloway/dispatchline/internal/notify"
	"github.com/calloway/dispatchline/internal/reply"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	DB          *gorm.DB
	Config      *config.Config
	Scheduler   *notify.Scheduler
	Interpreter *reply.Interpreter
	Out         io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	port := opts.Config.Server.Port
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Webhook server listening on :%d\n", port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered. Split out from
// Start so tests can drive it with httptest.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("server: scheduler is required")
	}
	if opts.Interpreter == nil {
		return nil, fmt.Errorf("server: interpreter is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router, nil
}
