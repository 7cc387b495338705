package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const (
	profilePath = "/api/profile"
	exportPath  = "/api/profile/export"

	maxBodyBytes = 4 << 20
)

// envelope is the { success, data, error } wrapper of the profile API.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type ProfileClient struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

var _ profile.Gateway = (*ProfileClient)(nil)

// NewProfileClient talks to the profile API at baseURL. The transport is
// traced with otelhttp; per-call deadlines come from the caller's context.
func NewProfileClient(baseURL string, timeout time.Duration, log logger.Logger) *ProfileClient {
	return &ProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		logger: log,
	}
}

func (c *ProfileClient) Get(ctx context.Context) (*profile.Profile, error) {
	status, body, err := c.do(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(status, body)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, apperror.NewApplication("profile response has no data")
	}

	var p profile.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, apperror.NewUpstream("malformed profile data", err)
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return &p, nil
}

func (c *ProfileClient) Update(ctx context.Context, p *profile.Profile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return apperror.NewInternal("failed to encode profile", err)
	}
	status, respBody, err := c.do(ctx, http.MethodPut, profilePath, body)
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(status, respBody)
	return err
}

// Export returns the export document as-is. A failure is reported by the API
// with the usual envelope.
func (c *ProfileClient) Export(ctx context.Context) (profile.ExportPayload, error) {
	status, body, err := c.do(ctx, http.MethodGet, exportPath, nil)
	if err != nil {
		return nil, err
	}

	var payload profile.ExportPayload
	if jerr := json.Unmarshal(body, &payload); jerr != nil {
		if status < 200 || status > 299 {
			return nil, apperror.NewUpstream(fmt.Sprintf("export returned status %d", status), jerr)
		}
		return nil, apperror.NewUpstream("malformed export payload", jerr)
	}
	if raw, ok := payload["success"]; ok && string(raw) == "false" {
		var env envelope
		_ = json.Unmarshal(body, &env)
		return nil, apperror.NewApplication(messageOr(env.Error))
	}
	if status < 200 || status > 299 {
		return nil, apperror.NewUpstream(fmt.Sprintf("export returned status %d", status), nil)
	}
	return payload, nil
}

func (c *ProfileClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, apperror.NewInternal("failed to build upstream request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Profile API unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, apperror.NewUpstream(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, apperror.NewUpstream("failed to read upstream response", err)
	}
	c.logger.Debug("Profile API call", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
	return resp.StatusCode, respBody, nil
}

// decodeEnvelope classifies a response. A decodable success:false envelope is
// an application error whatever the status; anything else that is not a 2xx
// success envelope is a network failure.
func decodeEnvelope(status int, body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil {
		if status < 200 || status > 299 {
			return nil, apperror.NewUpstream(fmt.Sprintf("upstream returned status %d", status), err)
		}
		return nil, apperror.NewUpstream("malformed upstream envelope", err)
	}
	if !*env.Success {
		return nil, apperror.NewApplication(messageOr(env.Error))
	}
	if status < 200 || status > 299 {
		return nil, apperror.NewUpstream(fmt.Sprintf("upstream returned status %d", status), nil)
	}
	return &env, nil
}

func messageOr(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
