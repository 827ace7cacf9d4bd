package ehealth

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"ehealth-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.CertificateTransferRecord {
	return &models.CertificateTransferRecord{
		PersonalID:         "12508200001043",
		EducationLevelCode: 12,
		StartDate:          "2017-03-01",
		EndDate:            "2017-06-01",
		HoursOfStudy:       "12",
		ReferenceNumber:    "12234513456",
		CourseTitle:        "Test course",
		DocumentIssueDate:  "2023-11-26",
	}
}

func TestClient_Send_Success(t *testing.T) {
	var gotBody map[string]interface{}
	var gotToken, gotContentType, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotToken = r.URL.Query().Get("token")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(Config{EndpointURL: server.URL + "/api", APIToken: "secret"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	require.True(t, result.Success())
	assert.Empty(t, result.Error)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "application/json", gotContentType)

	keys := make([]string, 0, len(gotBody))
	for k := range gotBody {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"pin", "educationLevel_MKId", "startDate", "endDate",
		"hoursOfStudy", "number", "naimenovaniyeKursa", "documentIssueDate",
	}, keys)
	assert.Equal(t, "12508200001043", gotBody["pin"])
	assert.Equal(t, float64(12), gotBody["educationLevel_MKId"])
	assert.Equal(t, "2017-03-01", gotBody["startDate"])
}

func TestClient_Send_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid pin"}`))
	}))
	defer server.Close()

	client := NewClient(Config{EndpointURL: server.URL, APIToken: "secret"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.Contains(t, result.Error, "invalid pin")
}

func TestClient_Send_UnknownStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"unauthorized", http.StatusUnauthorized},
		{"created is not success", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("registry says no"))
			}))
			defer server.Close()

			client := NewClient(Config{EndpointURL: server.URL, APIToken: "t"}, nil)
			result := client.Send(context.Background(), sampleRecord())

			assert.Equal(t, OutcomeUnknown, result.Outcome)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Contains(t, result.Error, "unknown")
			assert.Contains(t, result.Error, "registry says no")
		})
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := NewClient(Config{EndpointURL: "http://" + addr + "/api", APIToken: "t"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	assert.Equal(t, OutcomeTransportFailed, result.Outcome)
	assert.Zero(t, result.StatusCode)
	assert.Contains(t, result.Error, "transport error")
	assert.Contains(t, result.Error, "connection refused")
	assert.NotContains(t, result.Error, "status")
}

func TestClient_Send_KeepsExistingQuery(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{EndpointURL: server.URL + "/api?version=2", APIToken: "a b&c"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	require.True(t, result.Success())
	assert.Equal(t, []string{"2"}, gotQuery["version"])
	assert.Equal(t, []string{"a b&c"}, gotQuery["token"])
}

func TestClient_Send_QueryOrderUntouched(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{EndpointURL: server.URL + "/api.php?z=1&a=%7E&method=send", APIToken: "tok123"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	require.True(t, result.Success())
	assert.Equal(t, "z=1&a=%7E&method=send&token=tok123", rawQuery)
}

func TestClient_Send_FollowsRedirectPreservingPost(t *testing.T) {
	var finalMethod string
	var finalBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new?"+r.URL.RawQuery, http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		finalMethod = r.Method
		finalBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Config{EndpointURL: server.URL + "/old", APIToken: "t"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	require.True(t, result.Success())
	assert.Equal(t, http.MethodPost, finalMethod)
	assert.Contains(t, string(finalBody), `"pin":"12508200001043"`)
}

func TestClient_Send_InvalidEndpoint(t *testing.T) {
	client := NewClient(Config{EndpointURL: "not a url", APIToken: "t"}, nil)
	result := client.Send(context.Background(), sampleRecord())

	assert.Equal(t, OutcomeTransportFailed, result.Outcome)
	assert.NotEmpty(t, result.Error)
}
