package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ehealth-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_TableAndPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	pg := &PostgresClient{DB: db, Prefix: "mdl_"}
	assert.Equal(t, "mdl_local_ehealthapi", pg.Table("local_ehealthapi"))

	mock.ExpectPing()
	require.NoError(t, pg.Ping(context.Background()))

	mock.ExpectClose()
	require.NoError(t, pg.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Address: "cache:6379", PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 4, opts.PoolSize)

	opts, err = redisOptions(config.RedisConfig{Address: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.RedisConfig{Address: "redis://cache:6380/2", DB: 5, Password: "override"})
	require.NoError(t, err)
	assert.Equal(t, 5, opts.DB)
	assert.Equal(t, "override", opts.Password)

	_, err = redisOptions(config.RedisConfig{Address: "redis://cache:6380/notanumber"})
	assert.Error(t, err)
}

func esServer(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}, Index: "ehealth-eventlog"})
	require.NoError(t, err)
	return es
}

func TestElasticsearch_Ping(t *testing.T) {
	status := http.StatusOK
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	assert.Equal(t, "ehealth-eventlog", es.Index)
	assert.NoError(t, es.Ping(context.Background()))

	status = http.StatusUnauthorized
	assert.Error(t, es.Ping(context.Background()))
}

func TestElasticsearch_EnsureIndex_Creates(t *testing.T) {
	var created string
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			created = r.URL.Path + " " + string(body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"acknowledged":true,"index":"ehealth-eventlog"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	require.NoError(t, es.EnsureIndex(context.Background()))
	assert.Contains(t, created, "/ehealth-eventlog")
	assert.Contains(t, created, `"contextinstanceid"`)
}

func TestElasticsearch_EnsureIndex_Exists(t *testing.T) {
	puts := 0
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, es.EnsureIndex(context.Background()))
	assert.Zero(t, puts)
}

func TestElasticsearch_EnsureIndex_Race(t *testing.T) {
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"},"status":400}`))
	})

	assert.NoError(t, es.EnsureIndex(context.Background()))
}

func TestElasticsearch_EnsureIndex_Fails(t *testing.T) {
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"},"status":400}`))
	})

	err := es.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}
