package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/config"
	"github.com/ugxchange/ugxchange/internal/handlers"
	"github.com/ugxchange/ugxchange/internal/notify"
	"github.com/ugxchange/ugxchange/internal/random"
	"github.com/ugxchange/ugxchange/internal/repository"
	"github.com/ugxchange/ugxchange/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, keeping info")
	}

	// Amounts are rendered as JSON numbers, matching what clients send.
	decimal.MarshalJSONWithoutQuotes = true

	var dynamoClient *dynamodb.Client
	if cfg.Store.OTPBackend == config.BackendDynamoDB || cfg.Store.LedgerBackend == config.BackendDynamoDB {
		dynamoClient, err = initDynamoDB(cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize DynamoDB")
		}
	}

	var redisClient *redis.Client
	if cfg.Store.OTPBackend == config.BackendRedis {
		redisClient, err = initRedis(cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Redis")
		}
		defer redisClient.Close()
	}

	// Initialize stores
	var otpStore repository.OTPStore
	switch cfg.Store.OTPBackend {
	case config.BackendRedis:
		otpStore = repository.NewRedisOTPStore(redisClient, cfg.OTP.Retention, logger)
	case config.BackendDynamoDB:
		otpStore = repository.NewDynamoOTPStore(dynamoClient, cfg.DynamoDB.TableName, cfg.OTP.Retention, logger)
	default:
		otpStore = repository.NewMemoryOTPStore()
	}

	var txStore repository.TransactionStore
	var userStore repository.UserStore
	if cfg.Store.LedgerBackend == config.BackendDynamoDB {
		txStore = repository.NewDynamoTransactionStore(dynamoClient, cfg.DynamoDB.TableName, logger)
		userStore = repository.NewDynamoUserStore(dynamoClient, cfg.DynamoDB.TableName, logger)
	} else {
		txStore = repository.NewMemoryTransactionStore()
		userStore = repository.NewMemoryUserStore()
	}

	// Initialize services
	source := random.NewCryptoSource()
	otpService := service.NewOTPService(otpStore, newSender(cfg, logger), source, &cfg.OTP, logger)
	ledgerService := service.NewLedgerService(txStore, source, logger)
	userService := service.NewUserService(userStore, logger)
	rateService := service.NewRateService(&cfg.Rates)

	router := handlers.NewRouter(
		handlers.NewOTPHandlers(otpService, logger),
		handlers.NewLedgerHandlers(ledgerService, logger),
		handlers.NewExchangeHandlers(rateService, userService, logger),
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":         cfg.Server.Port,
			"otp_store":    cfg.Store.OTPBackend,
			"ledger_store": cfg.Store.LedgerBackend,
			"notifier":     cfg.Notifier.Kind,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func newSender(cfg *config.Config, logger *logrus.Logger) notify.Sender {
	if cfg.Notifier.Kind == config.NotifierTwilio {
		return notify.NewTwilioSender(
			cfg.Notifier.TwilioAccountSID,
			cfg.Notifier.TwilioAuthToken,
			cfg.Notifier.TwilioFrom,
			cfg.Notifier.TwilioBaseURL,
			cfg.Notifier.Timeout,
			logger,
		)
	}
	return notify.NewLogSender(logger)
}

func initRedis(cfg *config.Config, logger *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Endpoint, err)
	}

	logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Redis client initialized")
	return client, nil
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}
