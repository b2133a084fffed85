package da

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orderbridge/internal/common"
)

// send issues a JSON request and returns the raw response body. A nil body
// sends no payload. Non-2xx statuses are returned with the body and no error;
// callers decide what the status means.
func (c *Client) send(ctx context.Context, method, url string, body any) ([]byte, int, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var payload io.Reader
	size := 0
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("da.http.encode_error", "req_id", reqID, "error", err)
			return nil, 0, fmt.Errorf("encode json: %w", err)
		}
		payload = bytes.NewReader(bs)
		size = len(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		c.logger.Error("da.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if helper := common.HelperIDFromContext(ctx); helper != "" && c.cfg.HelperHeader != "" {
		req.Header.Set(c.cfg.HelperHeader, helper)
	}

	c.logger.Info("da.http.request",
		"req_id", reqID,
		"method", method,
		"url", url,
		"content_length", size,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("da.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, common.NewCollaboratorError(service, 0, err.Error())
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("da.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	c.logger.Info("da.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		return nil, resp.StatusCode, common.NewCollaboratorError(service, resp.StatusCode, "read response: "+err.Error())
	}
	return raw, resp.StatusCode, nil
}

// statusError builds the error for a non-2xx response, preferring the
// platform's own errorMessage.
func statusError(status int, raw []byte) error {
	var env struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	if json.Unmarshal(raw, &env) == nil {
		if env.ErrorMessage != "" {
			return common.NewCollaboratorError(service, status, env.ErrorMessage)
		}
		if env.Message != "" {
			return common.NewCollaboratorError(service, status, env.Message)
		}
	}
	msg := http.StatusText(status)
	if s := bytes.TrimSpace(raw); len(s) > 0 && len(s) <= 200 {
		msg = string(s)
	}
	return common.NewCollaboratorError(service, status, msg)
}
