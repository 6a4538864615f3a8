package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"consultbot/internal/ai"
	"consultbot/internal/app"
	"consultbot/internal/cache"
	"consultbot/internal/config"
	"consultbot/internal/knowledge"
	mysqlClient "consultbot/internal/platform/mysql"
	postgresClient "consultbot/internal/platform/postgres"
	rabbitmqClient "consultbot/internal/platform/rabbitmq"
	redisClient "consultbot/internal/platform/redis"
	"consultbot/internal/repository"
	"consultbot/internal/vectorstore"
	"consultbot/internal/worker"
)

// Options selects the background parts a command needs.
type Options struct {
	StartWorkers bool
}

// App is the composition root. Infrastructure clients are nil when no
// configured component needs them.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL    *gorm.DB
	Postgres *sql.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection

	Index       *app.KnowledgeIndex
	Retriever   *app.Retriever
	Gateway     *app.Gateway
	Chat        *app.ChatService
	Admin       *app.AdminService
	Transcripts *app.TranscriptService

	publisher     *rabbitmqClient.MessagePublisher
	messageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.init(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	cfg := a.Config
	var err error

	if cfg.NeedsMySQL() {
		if a.MySQL, err = mysqlClient.New(ctx, cfg.MySQL); err != nil {
			return err
		}
	}
	if cfg.VectorStore.Backend == config.VectorStorePgvector {
		if a.Postgres, err = postgresClient.New(ctx, cfg.VectorStore.PostgresDSN); err != nil {
			return err
		}
	}
	if cfg.NeedsRedis() {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
			return err
		}
	}
	if cfg.NeedsRabbitMQ() {
		if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ); err != nil {
			return err
		}
	}

	embedder, err := a.newEmbedder()
	if err != nil {
		return err
	}
	store, err := a.newStore(ctx)
	if err != nil {
		return err
	}

	loader, err := knowledge.NewLoader(knowledge.LoaderConfig{
		Dir:        cfg.Knowledge.Dir,
		Files:      cfg.Knowledge.Files,
		Pattern:    cfg.Knowledge.Pattern,
		Extensions: cfg.Knowledge.Extensions,
		Logger:     a.Logger.With("component", "loader"),
	})
	if err != nil {
		return err
	}

	a.Index = app.NewKnowledgeIndex(app.KnowledgeIndexConfig{
		Source:    loader,
		Chunker:   knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		Embedder:  embedder,
		Store:     store,
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    a.Logger.With("component", "index"),
	})
	a.Retriever = app.NewRetriever(a.Index, embedder, cfg.Knowledge.TopK, a.Logger.With("component", "retriever"))
	a.Gateway = app.NewGateway(a.newChatBackend(), cfg.Persona.ContactEmail, a.Logger.With("component", "gateway"))

	var publisher app.AsyncMessagePublisher
	if cfg.Transcripts.Enabled {
		a.publisher = rabbitmqClient.NewMessagePublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue)
		publisher = a.publisher

		messageRepo := repository.NewMessageRepository(a.MySQL)
		a.Transcripts = app.NewTranscriptService(messageRepo)
		if opts.StartWorkers {
			a.messageWorker = worker.NewMessagePersistWorker(
				a.MQConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, a.Logger.With("component", "worker"),
			)
			if err := a.messageWorker.Start(ctx); err != nil {
				return fmt.Errorf("start message worker failed: %w", err)
			}
		}
	}

	a.Chat = app.NewChatService(app.ChatServiceConfig{
		Retriever:  a.Retriever,
		Gateway:    a.Gateway,
		Persona:    app.Persona{Company: cfg.Persona.Company, ContactEmail: cfg.Persona.ContactEmail},
		Publisher:  publisher,
		MaxContext: cfg.Chat.MaxContextMessage,
		TopK:       cfg.Knowledge.TopK,
		Logger:     a.Logger.With("component", "chat"),
	})
	a.Admin = app.NewAdminService(
		cfg.Auth.AdminUsername,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	return nil
}

func (a *App) newEmbedder() (ai.Embedder, error) {
	cfg := a.Config.Embedding
	embCfg := ai.EmbeddingConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	var embedder ai.Embedder
	switch cfg.Provider {
	case config.EmbeddingProviderOllama:
		ollama, err := ai.NewOllamaEmbedder(embCfg)
		if err != nil {
			return nil, err
		}
		embedder = ollama
	default:
		embedder = ai.NewOpenAIEmbedder(embCfg)
	}

	if a.Redis != nil {
		vectorCache := cache.NewEmbeddingCache(a.Redis, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		embedder = ai.NewCachedEmbedder(embedder, vectorCache, a.Logger.With("component", "embedding_cache"))
	}
	return embedder, nil
}

func (a *App) newStore(ctx context.Context) (vectorstore.Store, error) {
	switch a.Config.VectorStore.Backend {
	case config.VectorStoreMySQL:
		return vectorstore.NewMySQLStore(repository.NewKnowledgeChunkRepository(a.MySQL)), nil
	case config.VectorStorePgvector:
		return vectorstore.NewPgvectorStore(ctx, a.Postgres)
	default:
		return vectorstore.NewMemoryStore(), nil
	}
}

func (a *App) newChatBackend() ai.ChatBackend {
	cfg := a.Config
	timeout := time.Duration(cfg.Chat.TimeoutSeconds) * time.Second
	if cfg.Chat.Backend == config.ChatBackendWebhook {
		return ai.NewWebhookClient(ai.WebhookConfig{
			URL:     cfg.Chat.WebhookURL,
			Secret:  cfg.Chat.WebhookSecret,
			Timeout: timeout,
		})
	}
	return ai.NewOpenAICompatibleClient(ai.LLMConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: timeout,
	})
}

func (a *App) Close() error {
	var closeErr error
	if a.messageWorker != nil {
		a.messageWorker.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
