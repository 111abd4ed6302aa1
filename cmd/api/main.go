// Package main is the entry point for the chat gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/chat"
	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/config"
	"github.com/chatbees/chatbees-go/internal/handler"
	"github.com/chatbees/chatbees-go/internal/llm"
	"github.com/chatbees/chatbees-go/internal/middleware"
	natsclient "github.com/chatbees/chatbees-go/internal/nats"
	"github.com/chatbees/chatbees-go/internal/service"
	"github.com/chatbees/chatbees-go/internal/store"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting gateway",
		zap.String("account_id", cfg.AccountID),
		zap.String("namespace", cfg.Namespace),
	)

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatbees-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	cb, err := client.FromConfig(cfg, log)
	if err != nil {
		return err
	}

	var (
		sinks   []chat.Sink
		events  service.EventPublisher
		archive handler.Archive
		checks  = map[string]handler.Check{}
	)

	if cfg.NATSEnabled {
		nc, err := natsclient.Connect(ctx, natsclient.ConfigFrom(cfg), log)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()

		transcripts := natsclient.NewTranscriptStream(nc, log)
		if err := transcripts.EnsureStream(ctx); err != nil {
			return fmt.Errorf("failed to ensure stream: %w", err)
		}
		sinks = append(sinks, transcripts)
		events = transcripts
		checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}

	if cfg.TranscriptDBPath != "" {
		db, err := store.Open(ctx, cfg.TranscriptDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		sinks = append(sinks, db)
		archive = db
		checks["transcript_store"] = db.Ping
	}

	var asker chat.Asker = cb
	if cfg.LLMProvider != "" {
		lc, err := llm.NewClient(llm.Provider(cfg.LLMProvider), cfg.LLMAPIKey(), cfg.LLMBaseURL)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		asker = &llm.Hybrid{Retriever: cb, Local: llm.NewDirect(lc, cfg.LLMModel, cfg.LLMSystemPrompt)}
		log.Info("answering applications locally", zap.String("provider", lc.Name()))
	}

	var sink chat.Sink
	if len(sinks) > 0 {
		sink = chat.MultiSink(sinks...)
	}

	sessions := service.NewSessionService(asker, cfg.Namespace, sink, events, log)
	defer sessions.Close()

	healthHandler := handler.NewHealthHandler(checks)
	sessionHandler := handler.NewSessionHandler(sessions, log)
	messageHandler := handler.NewMessageHandler(sessions, log)
	streamHandler := handler.NewStreamHandler(sessions, log)
	collectionHandler := handler.NewCollectionHandler(cb, log)
	conversationHandler := handler.NewConversationHandler(cb, archive, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(nil))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)

				r.Post("/ask", messageHandler.Ask)
				r.Get("/messages", messageHandler.List)

				r.Get("/stream", streamHandler.Stream)
				r.Post("/stream", streamHandler.StreamAsk)
			})
		})

		r.Get("/conversations", conversationHandler.List)
		r.Get("/conversations/{id}", conversationHandler.Get)

		r.Get("/collections", collectionHandler.List)
		r.Post("/feedback", collectionHandler.Feedback)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
