package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration and skips the suite when
// no server address is given.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseHTTPSuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends a request and decodes the data field of the response into out.
func (s *BaseHTTPSuite) Do(t *testing.T, method, path, contentType string, body io.Reader, out any) int {
	req, err := http.NewRequest(method, s.Config.ServerAddr+path, body)
	s.Require().NoError(err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Failed to reach server at "+s.Config.ServerAddr)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	t.Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		t.Logf("RESPONSE:\n%s", raw)
	}

	if out != nil && len(raw) > 0 {
		var env envelope
		s.Require().NoError(json.Unmarshal(raw, &env))
		if len(env.Data) > 0 {
			s.Require().NoError(json.Unmarshal(env.Data, out))
		}
	}
	return resp.StatusCode
}

// Upload posts content as the multipart "file" field.
func (s *BaseHTTPSuite) Upload(t *testing.T, session, name, content string, out any) int {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	s.Require().NoError(err)
	_, err = io.WriteString(part, content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())
	return s.Do(t, http.MethodPost, "/api/sessions/"+session+"/uploads", writer.FormDataContentType(), &buf, out)
}
