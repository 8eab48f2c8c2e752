package backend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestClient_UploadLogFile(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	received := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal(uploadEndpoint, r.URL.Path)
		file, header, err := r.FormFile("file")
		req.NoError(err)
		defer file.Close()
		body, err := io.ReadAll(file)
		req.NoError(err)
		req.Equal("app.log", header.Filename)
		received <- string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(log, server.URL+"/", 5*time.Second, 10, 1)
	err := client.UploadLogFile(context.Background(), "app.log", strings.NewReader("ERROR disk full\n"))

	req.NoError(err)
	req.Equal("ERROR disk full\n", <-received)
}

func TestClient_UploadLogFile_Server_Error(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(log, server.URL, 5*time.Second, 10, 1)
	err := client.UploadLogFile(context.Background(), "app.log", strings.NewReader("x"))

	req.EqualError(err, "backend returned 500")
}

func TestClient_UploadLogFile_Cancelled_While_Throttled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	client := NewClient(log, "http://127.0.0.1:0", time.Second, 0.001, 1)
	// Burn the only token
	req.True(client.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := client.UploadLogFile(ctx, "app.log", strings.NewReader("x"))
	req.Error(err)
}
