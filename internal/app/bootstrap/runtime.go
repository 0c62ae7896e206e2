package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

const credentialNamespace = "office-portal"

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCredentialStore picks where the remembered credential lives. dynamo
// is only consulted for the "dynamodb" store. The returned close func is
// never nil.
func BuildCredentialStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, dynamo session.DynamoAPI) (session.CredentialStore, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.CredentialStore {
	case "memory":
		return session.NewMemoryStore(), noop, nil
	case "", "file":
		logger.Debug("remembered credential stored on disk", "path", cfg.CredentialFile)
		return session.NewFileStore(cfg.CredentialFile), noop, nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, noop, fmt.Errorf("bootstrap: redis credential store requires a reachable REDIS_ADDR")
		}
		return session.NewRedisStore(client, credentialNamespace, cfg.CredentialTTL), client.Close, nil
	case "dynamodb":
		if dynamo == nil {
			return nil, noop, fmt.Errorf("bootstrap: dynamodb credential store requires a client")
		}
		store, err := session.NewDynamoStore(dynamo, cfg.CredentialTable, credentialNamespace, cfg.CredentialTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown credential store %q", cfg.CredentialStore)
	}
}

// BuildExportSink archives CSV exports to S3 when a bucket and client are
// available, otherwise to ExportDir on disk.
func BuildExportSink(cfg *appconfig.Config, s3Client csvexport.S3API, logger *logging.Logger) (csvexport.Sink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if strings.TrimSpace(cfg.ExportS3Bucket) != "" && s3Client != nil {
		sink, err := csvexport.NewS3Sink(s3Client, cfg.ExportS3Bucket, cfg.ExportS3Prefix, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: export sink: %w", err)
		}
		return sink, nil
	}
	return csvexport.NewFileSink(cfg.ExportDir), nil
}
