// Package bigquery streams sales analytics rows into BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errDatasetRequired   = errors.New("bigquery dataset is required")
	errTableRequired     = errors.New("bigquery table name is required")
	errNotInitialized    = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the worker writes to.
type TableSpec struct {
	Name string
	// Schema is used when the table has to be created, and existing tables
	// must contain every field in it.
	Schema bigquery.Schema
	// PartitionField, when set, day-partitions a created table on that
	// TIMESTAMP column.
	PartitionField string
}

type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	logg    *logger.Logger
}

// NewClient connects and checks the dataset exists. Tables are handled by
// EnsureTable.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, dataset: bq.Dataset(datasetID), logg: logg}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping checks the dataset is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

// EnsureTable creates spec's table when missing, otherwise verifies it has
// every column the schema names.
func (c *Client) EnsureTable(ctx context.Context, spec TableSpec) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errTableRequired
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	table := c.dataset.Table(name)
	md, err := table.Metadata(ctx)
	switch {
	case isNotFound(err):
		meta := &bigquery.TableMetadata{Schema: spec.Schema}
		if spec.PartitionField != "" {
			meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: spec.PartitionField}
		}
		if err := table.Create(ctx, meta); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if c.logg != nil {
			c.logg.Info(c.logg.WithField(ctx, "table", name), "bigquery table created")
		}
		return nil
	case err != nil:
		return fmt.Errorf("checking table %q: %w", name, err)
	}

	if missing := missingFields(md.Schema, spec.Schema); len(missing) > 0 {
		return fmt.Errorf("table %q is missing columns %s", name, strings.Join(missing, ", "))
	}
	return nil
}

func missingFields(have, want bigquery.Schema) []string {
	present := make(map[string]bool, len(have))
	for _, f := range have {
		present[strings.ToLower(f.Name)] = true
	}
	var missing []string
	for _, f := range want {
		if !present[strings.ToLower(f.Name)] {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// InsertRows streams rows into table. Per-row rejections come back as one
// error naming how many rows failed and the first reason.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableRequired
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.dataset.Table(table).Inserter().Put(ctx, rows)
	var multi bigquery.PutMultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		return fmt.Errorf("%d of %d rows rejected: %s", len(multi), len(rows), multi[0].Error())
	}
	return err
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
