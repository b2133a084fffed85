package da

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

// fileFilter is the body the platform expects when getfile is sent as POST.
type fileFilter struct {
	OnlyUnfiled    bool        `json:"onlyUnfiled"`
	CareProviderID providerRef `json:"careProviderId"`
	DateFrom       *string     `json:"dateFrom"`
	DateTo         *string     `json:"dateTo"`
	Page           int         `json:"page"`
	RecordsPerPage int         `json:"recordsPerPage"`
}

type providerRef struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId"`
}

type fileResponse struct {
	DocumentBuffer string     `json:"documentBuffer"`
	Value          *fileValue `json:"value"`
}

type fileValue struct {
	DocumentBuffer string `json:"documentBuffer"`
	Document       *struct {
		Status map[string]any `json:"status"`
	} `json:"document"`
}

func (r fileResponse) buffer() string {
	if r.Value != nil && r.Value.DocumentBuffer != "" {
		return r.Value.DocumentBuffer
	}
	return r.DocumentBuffer
}

// statusFields are the document status values carried over to the record.
var statusFields = []string{"startOfCareDate", "certPeriodFrom", "certPeriodTo"}

func (r fileResponse) fields() map[string]string {
	if r.Value == nil || r.Value.Document == nil {
		return nil
	}
	out := make(map[string]string)
	for _, name := range statusFields {
		if v, ok := r.Value.Document.Status[name].(string); ok && strings.TrimSpace(v) != "" {
			out[name] = strings.TrimSpace(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FetchDocument returns the PDF bytes of docID.
func (c *Client) FetchDocument(ctx context.Context, docID string) ([]byte, error) {
	doc, err := c.Fetch(ctx, docID)
	if err != nil {
		return nil, err
	}
	return doc.Bytes, nil
}

// Fetch downloads docID. The platform sometimes answers a plain GET without
// the document buffer; the request is then repeated once as POST with the
// filter body. A buffer still missing is ErrDocumentUnavailable.
func (c *Client) Fetch(ctx context.Context, docID string) (entity.RawDocument, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return entity.RawDocument{}, fmt.Errorf("%w: empty document id", common.ErrDocumentUnavailable)
	}
	endpoint := c.cfg.BaseURL + "/document/getfile?docId.id=" + url.QueryEscape(docID)

	resp, err := c.getFile(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.RawDocument{}, err
	}
	if resp.buffer() == "" {
		c.logger.Warn("da.fetch.retry", "doc_id", docID)
		resp, err = c.getFile(ctx, http.MethodPost, endpoint, fileFilter{
			OnlyUnfiled:    true,
			CareProviderID: providerRef{ID: c.cfg.CaretakerID},
			Page:           1,
			RecordsPerPage: 10,
		})
		if err != nil {
			return entity.RawDocument{}, err
		}
	}
	if resp.buffer() == "" {
		c.logger.Error("da.fetch.missing", "doc_id", docID)
		return entity.RawDocument{}, fmt.Errorf("%w: document %s has no buffer", common.ErrDocumentUnavailable, docID)
	}

	pdf, err := base64.StdEncoding.DecodeString(resp.buffer())
	if err != nil {
		return entity.RawDocument{}, fmt.Errorf("%w: document %s buffer is not base64: %v", common.ErrDocumentUnavailable, docID, err)
	}
	c.logger.Info("da.fetch.ok", "doc_id", docID, "bytes", len(pdf))
	return entity.RawDocument{
		DocID:     docID,
		Bytes:     pdf,
		Fields:    resp.fields(),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// getFile treats 404 and an undecodable body as a missing buffer so the
// caller can retry; any other non-2xx is a collaborator error.
func (c *Client) getFile(ctx context.Context, method, endpoint string, body any) (fileResponse, error) {
	raw, status, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return fileResponse{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return fileResponse{}, nil
	case status/100 != 2:
		return fileResponse{}, statusError(status, raw)
	}
	var resp fileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("da.fetch.decode_error", "error", err)
		return fileResponse{}, nil
	}
	return resp, nil
}
