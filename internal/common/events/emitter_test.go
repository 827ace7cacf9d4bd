package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/models"
)

func sampleEvent() *models.CertificateTransferredEvent {
	entry := &models.TransferLogEntry{ID: 31, UserID: 5, TimeCreated: 1700000000, CompletionID: 900}
	return models.NewCertificateTransferredEvent(entry, 42, time.Unix(1700000000, 0))
}

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

type recordingEmitter struct {
	events []*models.CertificateTransferredEvent
	err    error
}

func (r *recordingEmitter) Emit(ctx context.Context, event *models.CertificateTransferredEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestSNSEmitter_Emit(t *testing.T) {
	publisher := &fakePublisher{}
	emitter := NewSNSEmitter(publisher, "arn:aws:sns:eu-central-1:123456789012:certificates")

	event := sampleEvent()
	require.NoError(t, emitter.Emit(context.Background(), event))
	require.Len(t, publisher.inputs, 1)

	input := publisher.inputs[0]
	assert.Equal(t, "arn:aws:sns:eu-central-1:123456789012:certificates", *input.TopicArn)
	assert.Equal(t, models.CertificateTransferredName, *input.MessageAttributes["eventname"].StringValue)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*input.Message), &body))
	assert.Equal(t, float64(31), body["objectid"])
	assert.Equal(t, float64(5), body["relateduserid"])
	assert.Equal(t, float64(models.ContextLevelCourse), body["contextlevel"])
	assert.Equal(t, float64(42), body["contextinstanceid"])
}

func TestSNSEmitter_PublishError(t *testing.T) {
	emitter := NewSNSEmitter(&fakePublisher{err: errors.New("throttled")}, "arn")

	err := emitter.Emit(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func newElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestEventLogEmitter_Emit(t *testing.T) {
	var gotMethod, gotPath string
	var gotDoc map[string]interface{}

	client := newElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotDoc)

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	event := sampleEvent()
	emitter := NewEventLogEmitter(client, "ehealth-eventlog")
	require.NoError(t, emitter.Emit(context.Background(), event))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/ehealth-eventlog/_doc/"+event.EventID, gotPath)
	assert.Equal(t, models.CertificateTransferredName, gotDoc["eventname"])
	assert.Equal(t, "c", gotDoc["crud"])
}

func TestEventLogEmitter_ErrorStatus(t *testing.T) {
	client := newElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"cluster_block_exception"}`))
	})

	err := NewEventLogEmitter(client, "ehealth-eventlog").Emit(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster_block_exception")
}

func TestMultiEmitter(t *testing.T) {
	first := &recordingEmitter{}
	failing := &recordingEmitter{err: errors.New("sns down")}
	last := &recordingEmitter{}

	multi := MultiEmitter{first, failing, last}
	err := multi.Emit(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sns down")
	assert.Len(t, first.events, 1)
	assert.Len(t, failing.events, 1)
	assert.Len(t, last.events, 1)
}

func TestMultiEmitter_Empty(t *testing.T) {
	assert.NoError(t, MultiEmitter(nil).Emit(context.Background(), sampleEvent()))
}

func TestLogEmitter(t *testing.T) {
	emitter := NewLogEmitter(logger.NewTestLogger(t))
	assert.NoError(t, emitter.Emit(context.Background(), sampleEvent()))
}
