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

	"github.com/rentwise/rentwise-backend/pkg/config"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

// Client exports recomputed rollup rows to the warehouse.
type Client struct {
	client *bigquery.Client
	table  *bigquery.Table
	create bool
	logg   *logger.Logger
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// NewClient connects to BigQuery and makes sure the site stats table can be
// written, creating it when cfg.CreateTable allows.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tableID := strings.TrimSpace(cfg.SiteStatsTable)
	if tableID == "" {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	client := &Client{
		client: bqClient,
		table:  bqClient.Dataset(datasetID).Table(tableID),
		create: cfg.CreateTable,
		logg:   logg,
	}
	if err := client.ensureTable(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "table": tableID}), "bigquery exporter ready")
	return client, nil
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

func (c *Client) ensureTable(ctx context.Context) error {
	err := c.Ping(ctx)
	if err == nil || !isNotFound(err) || !c.create {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()
	meta := &bigquery.TableMetadata{
		Schema:           siteStatSchema(),
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: "date"},
	}
	if err := c.table.Create(ctx, meta); err != nil {
		return fmt.Errorf("creating table %q: %w", c.table.TableID, err)
	}
	c.logg.Info(c.logg.WithField(ctx, "table", c.table.TableID), "bigquery site stats table created")
	return nil
}

// Ping checks that the site stats table is reachable. Missing datasets or
// tables surface as googleapi 404 errors.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.table == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()
	if _, err := c.table.Metadata(ctx); err != nil {
		return fmt.Errorf("checking table %s.%s: %w", c.table.DatasetID, c.table.TableID, err)
	}
	return nil
}

// ExportSiteStat streams one daily site row. The day is the insert ID, so a
// re-export of a recomputed day is deduplicated on the BigQuery side.
func (c *Client) ExportSiteStat(ctx context.Context, row SiteStatRow) error {
	return c.ExportSiteStats(ctx, []SiteStatRow{row})
}

// ExportSiteStats streams several days at once, as a backfill produces them.
func (c *Client) ExportSiteStats(ctx context.Context, rows []SiteStatRow) error {
	if c == nil || c.table == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	savers := make([]*SiteStatRow, len(rows))
	for i := range rows {
		savers[i] = &rows[i]
	}
	if err := c.table.Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("insert %d site stat rows starting %s: %w", len(rows), rows[0].Date, err)
	}
	return nil
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
