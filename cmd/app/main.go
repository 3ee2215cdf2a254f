package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	v1 "mediaflow/internal/controller/http/v1"
	"mediaflow/internal/domain/entity"
	"mediaflow/internal/domain/usecase"
	"mediaflow/internal/notify"
	"mediaflow/internal/provider"
	"mediaflow/internal/repository/analytics"
	psqlRepo "mediaflow/internal/repository/psql"
	"mediaflow/internal/repository/rabbitmq"
	redisRepo "mediaflow/internal/repository/redis"
	s3Repo "mediaflow/internal/repository/s3"
	"mediaflow/pkg/client/psql"
	redisClientPkg "mediaflow/pkg/client/redis"
	s3ClientPkg "mediaflow/pkg/client/s3"
	"mediaflow/pkg/middleware"
)

type Config struct {
	ListenAddr string

	RedisAddr string
	RedisDB   int

	PSQLHost     string
	PSQLPort     int
	PSQLUser     string
	PSQLPassword string
	PSQLDBName   string
	PSQLSSLMode  string

	S3Host      string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool

	RabbitMQURL string

	AssemblyAIKey string
	OpenAIKey     string
	DeepgramKey   string

	WebhookSecret string
	AnalyticsURL  string

	PollInterval   time.Duration
	AttemptTimeout time.Duration
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	redisClient, err := redisClientPkg.NewRedisClient(ctx, redisClientPkg.Config{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.PSQLHost,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPassword,
		DBName:   cfg.PSQLDBName,
		Port:     cfg.PSQLPort,
		SslMode:  cfg.PSQLSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := db.AutoMigrate(&entity.ProcessingJob{}, &entity.CostRecord{}, &entity.UserQuota{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	s3Client, err := s3ClientPkg.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Secure)
	if err != nil {
		log.Fatalf("failed to init s3 client: %v", err)
	}

	var broker notify.BrokerPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()

		publisher, err := rabbitmq.NewEventPublisher(conn, "jobs.events")
		if err != nil {
			log.Fatalf("failed to init event publisher: %v", err)
		}
		broker = publisher
	} else {
		log.Println("RabbitMQ not configured, broker event mirror disabled")
	}

	providers := buildProviders(cfg)
	if len(providers) == 0 {
		log.Fatal("no transcription provider configured, set at least one API key")
	}
	router := provider.NewRouter(providers,
		provider.WithPollInterval(cfg.PollInterval),
		provider.WithAttemptTimeout(cfg.AttemptTimeout),
	)

	hub := notify.NewHub()
	fanout := notify.NewFanout(hub, notify.NewWebhookSender(cfg.WebhookSecret), broker)

	var analyticsSource usecase.AnalyticsSource
	if cfg.AnalyticsURL != "" {
		analyticsSource = analytics.NewClient(cfg.AnalyticsURL)
	}

	orchestrator := usecase.NewOrchestrator(
		psqlRepo.NewGormJobRepo(db),
		usecase.NewLedger(psqlRepo.NewGormLedgerRepo(db)),
		s3Repo.NewS3Repo(s3Client),
		redisRepo.NewRedisRepo(redisClient),
		fanout,
		router,
		analyticsSource,
	)

	handler := v1.NewJobHandler(orchestrator, hub)

	r := gin.Default()
	r.Use(middleware.AuthMiddleware())
	r.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: redisClient,
		Limit:       10,
		TierLimits:  map[string]int{"pro": 50, "enterprise": 200},
		Window:      time.Second,
		KeyPrefix:   "rl:",
	}))

	apiV1 := r.Group("/api/v1")
	handler.Register(apiV1)

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func buildProviders(cfg Config) []provider.TranscriptionProvider {
	var providers []provider.TranscriptionProvider

	// Fixed priority order; preferred provider reordering happens in
	// the router per request.
	if p, err := provider.NewAssemblyAI(cfg.AssemblyAIKey); err == nil {
		providers = append(providers, p)
	}
	if p, err := provider.NewOpenAI(cfg.OpenAIKey); err == nil {
		providers = append(providers, p)
	}
	if p, err := provider.NewDeepgram(cfg.DeepgramKey); err == nil {
		providers = append(providers, p)
	}

	for _, p := range providers {
		log.Printf("transcription provider configured: %s", p.Name())
	}
	return providers
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// REDIS
	redisHost := mustGetEnv("REDIS_HOST")
	redisPort := mustGetEnv("REDIS_PORT")
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}

	// PSQL
	psqlPort, err := strconv.Atoi(mustGetEnv("PSQL_PORT"))
	if err != nil {
		log.Fatalf("Invalid PSQL_PORT value: %v", err)
	}

	// RABBITMQ (optional)
	rabbitMQURL := ""
	if rmqHost := os.Getenv("RABBITMQ_HOST"); rmqHost != "" {
		rmqUser := mustGetEnv("RABBITMQ_USER")
		rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
		rmqPort := mustGetEnv("RABBITMQ_PORT")
		rabbitMQURL = "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"
	}

	pollInterval, err := time.ParseDuration(getEnv("PROVIDER_POLL_INTERVAL", "1s"))
	if err != nil {
		log.Fatalf("Invalid PROVIDER_POLL_INTERVAL value: %v", err)
	}
	attemptTimeout, err := time.ParseDuration(getEnv("PROVIDER_ATTEMPT_TIMEOUT", "90s"))
	if err != nil {
		log.Fatalf("Invalid PROVIDER_ATTEMPT_TIMEOUT value: %v", err)
	}

	return Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		RedisAddr: redisHost + ":" + redisPort,
		RedisDB:   redisDB,

		PSQLHost:     mustGetEnv("PSQL_HOST"),
		PSQLPort:     psqlPort,
		PSQLUser:     mustGetEnv("PSQL_USER"),
		PSQLPassword: mustGetEnv("PSQL_PASSWORD"),
		PSQLDBName:   mustGetEnv("PSQL_DB"),
		PSQLSSLMode:  mustGetEnv("PSQL_SSLMODE"),

		S3Host:      mustGetEnv("S3_HOST") + ":" + mustGetEnv("S3_PORT"),
		S3Bucket:    mustGetEnv("S3_BUCKET"),
		S3AccessKey: mustGetEnv("S3_ACCESS_KEY"),
		S3SecretKey: mustGetEnv("S3_SECRET_KEY"),
		S3Secure:    getEnv("S3_SECURE", "false") == "true",

		RabbitMQURL: rabbitMQURL,

		AssemblyAIKey: os.Getenv("ASSEMBLYAI_API_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		DeepgramKey:   os.Getenv("DEEPGRAM_API_KEY"),

		WebhookSecret: mustGetEnv("WEBHOOK_SECRET"),
		AnalyticsURL:  os.Getenv("ANALYTICS_SERVICE_URL"),

		PollInterval:   pollInterval,
		AttemptTimeout: attemptTimeout,
	}
}
