package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"ehealth-workers/internal/models"
)

// EventLogEmitter stores events in an Elasticsearch index, keyed by event id.
type EventLogEmitter struct {
	client *elasticsearch.Client
	index  string
}

func NewEventLogEmitter(client *elasticsearch.Client, index string) *EventLogEmitter {
	return &EventLogEmitter{client: client, index: index}
}

func (e *EventLogEmitter) Emit(ctx context.Context, event *models.CertificateTransferredEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(event.EventID),
	)
	if err != nil {
		return fmt.Errorf("event log index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("event log index error: %s: %s", res.Status(), msg)
	}
	return nil
}
