package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const (
	pingTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
)

// ErrNotConfigured is returned when no bucket is set.
var ErrNotConfigured = errors.New("gcs bucket not configured")

type Client struct {
	client        *storage.Client
	defaultBucket string
	prefix        string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, ErrNotConfigured
	}

	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	client := &Client{
		client:        sc,
		defaultBucket: cfg.BucketName,
		prefix:        strings.Trim(cfg.ReceiptPrefix, "/"),
	}

	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}

	return client, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.client.Bucket(c.defaultBucket).Attrs(ctx)
	return err
}

// PutText stores body under the configured prefix and returns the gs:// URI.
func (c *Client) PutText(ctx context.Context, name, body string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}
	object := ObjectPath(c.prefix, name)

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	w := c.client.Bucket(c.defaultBucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write([]byte(body)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", c.defaultBucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", c.defaultBucket, object, err)
	}
	return fmt.Sprintf("gs://%s/%s", c.defaultBucket, object), nil
}

// ObjectPath joins prefix and name into a clean object key.
func ObjectPath(prefix, name string) string {
	name = strings.TrimLeft(name, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Clean(name)
	}
	return path.Join(prefix, name)
}
