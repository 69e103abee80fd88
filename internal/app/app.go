// Package app assembles the assistant from configuration. Both binaries
// share it so the chat UI and the HTTP API always run the same core.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/assistant"
	appcatalog "github.com/Zhima-Mochi/minishop-assistant/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/conversation"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/orders"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/store"
	"github.com/Zhima-Mochi/minishop-assistant/internal/config"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/billingapi"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/catalogapi"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/kafkasink"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/llm"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/pkg/fuzzy"
	httppresentation "github.com/Zhima-Mochi/minishop-assistant/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-assistant/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const metricsNamespace = "shop"

// App is the wired assistant.
type App struct {
	Config       config.Config
	Logger       *zaplogger.Logger
	Telemetry    observability.Observability
	Dispatcher   *dispatcher.Dispatcher
	Assistant    *assistant.Service
	Conversation *conversation.Conversation
	HTTP         *httppresentation.Handler

	bus    *outbox.Bus
	sink   orders.Sink
	redis  *redis.Client
	system observability.Logger
}

// New builds every component described by cfg. The returned App owns
// background resources; call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := zaplogger.New(cfg.LogLevel,
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), logger, prometrics.New(metricsNamespace, "", reg), nil)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tel,
		system:    logger.With(observability.F("component", "bootstrap")),
	}

	sessions, catalogCache, err := a.state(ctx)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	a.bus = outbox.NewBus(logger, outbox.WithContextDecorator(workerpresentation.EventDecorator(logger)))
	a.sink = a.eventSink()
	orders.NewRelay(a.bus, a.sink, tel).Start()
	a.bus.Start(context.WithoutCancel(ctx))

	upstream := httpclient.Config{Timeout: cfg.UpstreamTimeout}
	catalogSvc := appcatalog.NewService(
		catalogapi.New(httpclient.New("catalog", upstream, tel), cfg.CategoryAPIURL, cfg.ItemsAPIBase),
		catalogCache,
		logger,
	)
	billing := billingapi.New(httpclient.New("billing", upstream, tel), cfg.BillAPIURL)

	st := store.New(sessions, billing, tel,
		store.WithPhonePolicy(cfg.PhonePolicy),
		store.WithPublisher(a.bus, id.NewUUIDGenerator()),
	)
	a.Dispatcher = dispatcher.New(st, catalogSvc, tel)
	a.Assistant = assistant.New(a.classifier(tel), a.Dispatcher, tel)
	a.Conversation = conversation.New(
		a.Dispatcher,
		a.Assistant,
		memory.NewConversationRepository(),
		fuzzy.New(cfg.FuzzyThreshold, cfg.FuzzyStrategy),
		tel,
	)
	a.HTTP = httppresentation.NewHandler(a.Dispatcher, a.Assistant, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), tel,
		httppresentation.WithAllowedOrigins(cfg.CORSOrigins...),
	)

	a.system.Info("app_ready",
		observability.F("session_backend", cfg.SessionBackend),
		observability.F("classifier", cfg.ClassifierProvider),
		observability.F("phone_policy", string(cfg.PhonePolicy)),
		observability.F("kafka", len(cfg.KafkaBrokers) > 0),
	)
	return a, nil
}

func (a *App) state(ctx context.Context) (session.Repository, appcatalog.Cache, error) {
	cfg := a.Config
	if cfg.SessionBackend != config.BackendRedis {
		return memory.NewSessionRepository(), appcatalog.NopCache(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		_ = a.redis.Close()
		return nil, nil, fmt.Errorf("app: redis %s: %w", cfg.RedisAddr, err)
	}

	var cache appcatalog.Cache = appcatalog.NopCache()
	if cfg.CatalogCacheEnabled() {
		cache = redisstore.NewCatalogCache(a.redis, cfg.CatalogCacheTTL)
	}
	return redisstore.NewSessionRepository(a.redis, cfg.SessionTTL), cache, nil
}

func (a *App) eventSink() orders.Sink {
	if len(a.Config.KafkaBrokers) == 0 {
		return orders.NewLogSink(a.Logger)
	}
	return kafkasink.New(a.Config.KafkaTopic, a.Config.KafkaBrokers...)
}

func (a *App) classifier(tel observability.Observability) intent.Classifier {
	cfg := a.Config
	upstream := httpclient.Config{Timeout: cfg.UpstreamTimeout}
	switch cfg.ClassifierProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			HTTP:    upstream,
		}, dispatcher.Actions, tel)
	case config.ProviderAnthropic:
		return llm.NewAnthropic(llm.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			HTTP:   upstream,
		}, dispatcher.Actions, tel)
	default:
		a.system.Warn("classifier_disabled", observability.F("provider", cfg.ClassifierProvider))
		return nil
	}
}

// Serve runs the HTTP API on cfg.HTTPAddr until ctx ends, then shuts down
// within the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.HTTP.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.system.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.system.Error("http_server_error", observability.F("error", err))
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.system.Error("http_server_shutdown_error", observability.F("error", err))
		return fmt.Errorf("app: shutdown: %w", err)
	}
	a.system.Info("http_server_stopped")
	return nil
}

// Close drains the event bus and releases external connections.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.bus != nil {
		a.bus.Stop(ctx)
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event sink: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
