// Package wav uploads order spreadsheets to the backend's bulk-list API.
package wav

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
)

const (
	service    = "wav"
	keyHeader  = "X-SERVICE-KEY"
	uploadPath = "/api/Order/UploadBulkList"
)

// Outcome values reported per uploaded row.
const (
	OutcomeCreated = "Created"
	OutcomeUpdated = "Updated"
	OutcomeFailed  = "Failed"
)

// RowOutcome is the backend's verdict on one worksheet row. Row is the
// worksheet row number, so the first data row is 2.
type RowOutcome struct {
	Row    int
	Status string
	ID     string
	Reason string
}

func (o RowOutcome) OK() bool {
	return o.Status == OutcomeCreated || o.Status == OutcomeUpdated
}

type Client struct {
	cfg    common.WAVConfig
	pl     runtime.Pipeline
	logger *slog.Logger
}

func NewClient(cfg common.WAVConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "WAV_BASE_URL and WAV_API_KEY are required", common.ErrInvalidInput)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	keyPolicy := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cfg.APIKey), keyHeader, &runtime.KeyCredentialPolicyOptions{
		InsecureAllowCredentialWithHTTP: strings.HasPrefix(cfg.BaseURL, "http://"),
	})
	pl := runtime.NewPipeline(service, "v1.0.0", runtime.PipelineOptions{
		PerCall: []policy.Policy{keyPolicy},
	}, &policy.ClientOptions{
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Telemetry: policy.TelemetryOptions{Disabled: true},
	})
	return &Client{cfg: cfg, pl: pl, logger: logger}, nil
}

// UploadBulkList posts one XLSX workbook and returns the per-row outcomes.
func (c *Client) UploadBulkList(ctx context.Context, fileName string, xlsx []byte) ([]RowOutcome, error) {
	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()

	req, err := runtime.NewRequest(ctx, http.MethodPost, c.cfg.BaseURL+uploadPath)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	err = runtime.SetMultipartFormData(req, map[string]any{
		"file": streaming.MultipartContent{
			Body:        streaming.NopCloser(bytes.NewReader(xlsx)),
			ContentType: constants.XLSXContentType,
			Filename:    fileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	resp, err := c.pl.Do(req)
	if err != nil {
		c.logger.Error("wav.upload.error", "file", fileName, "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewCollaboratorError(service, 0, err.Error())
	}
	raw, err := runtime.Payload(resp)
	_ = resp.Body.Close()
	if err != nil {
		return nil, common.NewCollaboratorError(service, resp.StatusCode, "read response: "+err.Error())
	}
	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusCreated) {
		msg := strings.TrimSpace(string(raw))
		if msg == "" || len(msg) > 200 {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Error("wav.upload.rejected", "file", fileName, "status", resp.StatusCode)
		return nil, common.NewCollaboratorError(service, resp.StatusCode, msg)
	}

	outcomes, err := ParseOutcomes(raw)
	if err != nil {
		return nil, common.NewCollaboratorError(service, resp.StatusCode, err.Error())
	}
	c.logger.Info("wav.upload.ok",
		"file", fileName,
		"bytes", len(xlsx),
		"rows", len(outcomes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outcomes, nil
}

type outcomeEntry struct {
	Key   json.RawMessage `json:"key"`
	Value string          `json:"value"`
}

// ParseOutcomes decodes a `[{key,value}]` response where value is
// "Created|<id>", "Updated|<id>" or "Failed|<reason>".
func ParseOutcomes(raw []byte) ([]RowOutcome, error) {
	var entries []outcomeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}
	out := make([]RowOutcome, 0, len(entries))
	for _, e := range entries {
		row, err := strconv.Atoi(strings.Trim(string(e.Key), `" `))
		if err != nil {
			return nil, fmt.Errorf("outcome key %s is not a row number", e.Key)
		}
		status, detail, _ := strings.Cut(e.Value, "|")
		o := RowOutcome{Row: row, Status: strings.TrimSpace(status)}
		switch o.Status {
		case OutcomeCreated, OutcomeUpdated:
			o.ID = strings.TrimSpace(detail)
		default:
			o.Status = OutcomeFailed
			o.Reason = strings.TrimSpace(detail)
			if o.Reason == "" {
				o.Reason = strings.TrimSpace(e.Value)
			}
		}
		out = append(out, o)
	}
	return out, nil
}

// Find returns the outcome for a worksheet row.
func Find(outcomes []RowOutcome, row int) (RowOutcome, bool) {
	for _, o := range outcomes {
		if o.Row == row {
			return o, true
		}
	}
	return RowOutcome{}, false
}
