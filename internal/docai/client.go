// Package docai talks to Azure Document Intelligence over its REST API.
package docai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

const (
	service    = "docai"
	keyHeader  = "Ocp-Apim-Subscription-Key"
	opLocation = "Operation-Location"

	codeModelNotFound = "ModelNotFound"
)

// Client analyzes documents with a custom model, falling back to a
// prebuilt model when the custom one does not exist.
type Client struct {
	cfg    common.DocAIConfig
	pl     runtime.Pipeline
	schema *jsonschema.Schema
	logger *slog.Logger
}

func NewClient(cfg common.DocAIConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		return nil, common.NewAppError(common.CodeConfig, "document-AI endpoint and key are required", common.ErrInvalidInput)
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "prebuilt-layout"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-11-30"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	schema, err := compileSchema(operationSchema)
	if err != nil {
		return nil, err
	}

	keyPolicy := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cfg.Key), keyHeader, &runtime.KeyCredentialPolicyOptions{
		InsecureAllowCredentialWithHTTP: strings.HasPrefix(cfg.Endpoint, "http://"),
	})
	pl := runtime.NewPipeline(service, "v1.0.0", runtime.PipelineOptions{
		PerCall: []policy.Policy{keyPolicy},
	}, &policy.ClientOptions{
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Telemetry: policy.TelemetryOptions{Disabled: true},
	})

	return &Client{cfg: cfg, pl: pl, schema: schema, logger: logger}, nil
}

// Analyze runs the configured model and retries once with the fallback
// model when the service reports the model missing.
func (c *Client) Analyze(ctx context.Context, docID string, pdf []byte) (*entity.Analysis, error) {
	model := c.cfg.ModelID
	if model == "" {
		model = c.cfg.FallbackModel
	}
	a, err := c.AnalyzeWithModel(ctx, docID, pdf, model)
	if err == nil || !errors.Is(err, common.ErrModelNotFound) || model == c.cfg.FallbackModel {
		return a, err
	}
	c.logger.Warn("docai.model.fallback",
		"doc_id", docID,
		"model", model,
		"fallback", c.cfg.FallbackModel,
	)
	return c.AnalyzeWithModel(ctx, docID, pdf, c.cfg.FallbackModel)
}

// AnalyzeWithModel submits pdf to model and polls until the operation ends
// or the configured timeout passes.
func (c *Client) AnalyzeWithModel(ctx context.Context, docID string, pdf []byte, model string) (*entity.Analysis, error) {
	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqID := uuid.New().String()
	start := time.Now()

	location, err := c.submit(ctx, pdf, model)
	if err != nil {
		c.logger.Error("docai.submit.error", "req_id", reqID, "doc_id", docID, "model", model, "error", err)
		return nil, err
	}
	c.logger.Info("docai.submit.ok", "req_id", reqID, "doc_id", docID, "model", model)

	op, err := c.poll(ctx, location)
	if err != nil {
		c.logger.Error("docai.poll.error", "req_id", reqID, "doc_id", docID, "model", model, "error", err)
		return nil, err
	}

	a := op.toAnalysis(model)
	c.logger.Info("docai.analyze.ok",
		"req_id", reqID,
		"doc_id", docID,
		"model", a.ModelID,
		"fields", len(a.StructuredFields),
		"kv_pairs", len(a.KeyValuePairs),
		"tables", len(a.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

func (c *Client) submit(ctx context.Context, pdf []byte, model string) (string, error) {
	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), url.PathEscape(model), url.QueryEscape(c.cfg.APIVersion))
	if strings.HasPrefix(model, "prebuilt-") {
		endpoint += "&features=keyValuePairs"
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, endpoint)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	body := map[string]string{"base64Source": base64.StdEncoding.EncodeToString(pdf)}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.pl.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusAccepted, http.StatusOK) {
		raw, _ := runtime.Payload(resp)
		return "", serviceError(resp.StatusCode, raw, model)
	}
	location := resp.Header.Get(opLocation)
	if location == "" {
		return "", common.NewCollaboratorError(service, resp.StatusCode, "response carried no "+opLocation+" header")
	}
	return location, nil
}

func (c *Client) poll(ctx context.Context, location string) (*operation, error) {
	for {
		req, err := runtime.NewRequest(ctx, http.MethodGet, location)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.pl.Do(req)
		if err != nil {
			return nil, transportError(err)
		}
		raw, err := runtime.Payload(resp)
		_ = resp.Body.Close()
		if err != nil {
			return nil, transportError(err)
		}
		if !runtime.HasStatusCode(resp, http.StatusOK) {
			return nil, serviceError(resp.StatusCode, raw, "")
		}
		if err := validate(c.schema, raw); err != nil {
			return nil, common.NewCollaboratorError(service, resp.StatusCode, err.Error())
		}

		var op operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, common.NewCollaboratorError(service, resp.StatusCode, "decode operation: "+err.Error())
		}
		switch op.Status {
		case "succeeded":
			return &op, nil
		case "failed", "canceled", "skipped":
			if op.Error != nil && op.Error.code() == codeModelNotFound {
				return nil, fmt.Errorf("%w: %s", common.ErrModelNotFound, op.Error.Message)
			}
			msg := "analysis " + op.Status
			if op.Error != nil && op.Error.Message != "" {
				msg = op.Error.Message
			}
			return nil, common.NewCollaboratorError(service, resp.StatusCode, msg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for analysis: %w", ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return common.NewCollaboratorError(service, 0, err.Error())
}

// serviceError turns a non-success response into ErrModelNotFound or a
// CollaboratorError carrying the service's own message.
func serviceError(status int, raw []byte, model string) error {
	var env struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error != nil {
		if env.Error.code() == codeModelNotFound {
			return fmt.Errorf("%w: %s", common.ErrModelNotFound, model)
		}
		if env.Error.Message != "" {
			return common.NewCollaboratorError(service, status, env.Error.Message)
		}
	}
	return common.NewCollaboratorError(service, status, http.StatusText(status))
}
