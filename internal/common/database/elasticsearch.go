// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ehealth-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient holds the client and index of the event log.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

// eventLogMapping keeps ids as keywords so the log can be filtered by course,
// user or audit row.
const eventLogMapping = `{
  "mappings": {
    "properties": {
      "eventId":           {"type": "keyword"},
      "eventname":         {"type": "keyword"},
      "component":         {"type": "keyword"},
      "action":            {"type": "keyword"},
      "target":            {"type": "keyword"},
      "crud":              {"type": "keyword"},
      "edulevel":          {"type": "integer"},
      "objecttable":       {"type": "keyword"},
      "objectid":          {"type": "long"},
      "contextlevel":      {"type": "integer"},
      "contextinstanceid": {"type": "long"},
      "courseid":          {"type": "long"},
      "userid":            {"type": "long"},
      "relateduserid":     {"type": "long"},
      "description":       {"type": "text"},
      "url":               {"type": "keyword", "index": false},
      "timecreated":       {"type": "date"}
    }
  }
}`

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es, Index: cfg.Index}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the event log index with its mapping unless it exists.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := c.Client.Indices.Exists([]string{c.Index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.Index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := c.Client.Indices.Create(c.Index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(eventLogMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.Index, err)
	}
	defer res.Body.Close()

	// A concurrent starter may have won the race.
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", c.Index, res.String())
	}
	return nil
}
