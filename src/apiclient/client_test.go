package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/api"})
}

func TestSendUnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workspace", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alpha", body.Name)

		w.Write([]byte(`{"code":0,"message":"ok","data":{"name":"alpha"}}`))
	})

	var out payload
	err := client.Send(context.Background(), http.MethodPost, "/workspace", payload{Name: "alpha"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "alpha", out.Name)
}

func TestSendQueryAndDeleteBody(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "my space", r.URL.Query().Get("workspace"))
			w.Write([]byte(`{"code":0,"data":null}`))
		})
		err := client.Send(context.Background(), http.MethodGet, "/image/list", nil, url.Values{"workspace": {"my space"}}, nil)
		require.NoError(t, err)
	})

	t.Run("delete with body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			data, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"name":"gone"}`, string(data))
			w.Write([]byte(`{"code":0}`))
		})
		err := client.Send(context.Background(), http.MethodDelete, "/workspace", payload{Name: "gone"}, nil, nil)
		require.NoError(t, err)
	})
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    int
	}{
		{
			name:        "non-zero code with message",
			status:      http.StatusOK,
			body:        `{"code":500,"message":"workspace already exists"}`,
			wantMessage: "workspace already exists",
			wantCode:    500,
		},
		{
			name:        "non-zero code without message",
			status:      http.StatusOK,
			body:        `{"code":1}`,
			wantMessage: DefaultErrorMessage,
			wantCode:    1,
		},
		{
			name:        "http error with envelope",
			status:      http.StatusBadRequest,
			body:        `{"code":400,"message":"name required"}`,
			wantMessage: "name required",
			wantCode:    400,
		},
		{
			name:        "http error without envelope",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "request failed (status 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.Send(context.Background(), http.MethodGet, "/workspace", nil, nil, nil)
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantMessage, reqErr.Message)
			assert.Equal(t, tt.wantCode, reqErr.Code)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.wantMessage, DisplayMessage(err))
		})
	}
}

func TestSendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: baseURL + "/api"})
	err := client.Send(context.Background(), http.MethodGet, "/workspace", nil, nil, nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.IsNetworkError())
	assert.Equal(t, DefaultErrorMessage, DisplayMessage(err))
}

func TestUploadMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "default", r.FormValue("workspace"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "pixels", string(data))

		w.Write([]byte(`{"code":0,"data":{"name":"default/cat.png"}}`))
	})

	var out payload
	err := client.Upload(context.Background(), "/image/upload",
		map[string]string{"workspace": "default"},
		FilePart{Name: "cat.png", MimeType: "image/png", Data: []byte("pixels")},
		&out)
	require.NoError(t, err)
	assert.Equal(t, "default/cat.png", out.Name)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/a.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/api"})

	data, contentType, err := client.Fetch(context.Background(), server.URL+"/files/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)

	data, _, err = client.Fetch(context.Background(), "/files/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, _, err = client.Fetch(context.Background(), "/files/missing.png")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://example.com/api/"})
	assert.Equal(t, "http://example.com/api", client.BaseURL())
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, defaultUploadTimeout, client.uploadClient.Timeout)

	client = NewClient(Config{})
	assert.Equal(t, defaultBaseURL, client.BaseURL())
}
