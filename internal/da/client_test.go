package da_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/da"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

func newClient(t *testing.T, srv *httptest.Server, mutate ...func(*common.DAConfig)) *da.Client {
	t.Helper()
	cfg := common.DAConfig{
		BaseURL:      srv.URL,
		PatientPath:  "/patient/create",
		Token:        "static-token",
		ClinicianID:  11,
		CaretakerID:  22,
		Timeout:      5 * time.Second,
		HelperHeader: "X-Helper-Id",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := da.NewClient(t.Context(), cfg, nil)
	require.NoError(t, err)
	return c
}

func TestFetch_GetSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		assert.Equal(t, "H7", r.Header.Get("X-Helper-Id"))
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/document/getfile", r.URL.Path)
		assert.Equal(t, "101", r.URL.Query().Get("docId.id"))
		_, _ = io.WriteString(w, `{"value":{"documentBuffer":"JVBERi0=","document":{"status":{"startOfCareDate":"01/05/2024","certPeriodTo":""}}}}`)
	}))
	defer srv.Close()

	ctx := common.WithHelperID(t.Context(), "H7")
	doc, err := newClient(t, srv).Fetch(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-"), doc.Bytes)
	assert.Equal(t, map[string]string{"startOfCareDate": "01/05/2024"}, doc.Fields)
}

func TestFetch_RetriesAsPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"value":{}}`)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["onlyUnfiled"])
		assert.Equal(t, float64(22), body["careProviderId"].(map[string]any)["id"])
		assert.Equal(t, float64(10), body["recordsPerPage"])
		_, _ = io.WriteString(w, `{"documentBuffer":"JVBERi0="}`)
	}))
	defer srv.Close()

	pdf, err := newClient(t, srv).FetchDocument(t.Context(), "102")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-"), pdf)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind common.ErrorKind
	}{
		{
			name: "buffer never arrives",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"value":null}`)
			},
			wantKind: common.KindDocumentUnavailable,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantKind: common.KindDocumentUnavailable,
		},
		{
			name: "bad base64",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"documentBuffer":"%%%"}`)
			},
			wantKind: common.KindDocumentUnavailable,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"errorMessage":"backend down"}`)
			},
			wantKind: common.KindCollaboratorError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newClient(t, srv).FetchDocument(t.Context(), "103")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, common.Classify(err))
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newClient(t, srv, func(cfg *common.DAConfig) { cfg.Timeout = 50 * time.Millisecond })
	_, err := c.FetchDocument(t.Context(), "104")
	require.Error(t, err)
	assert.Equal(t, common.KindCollaboratorError, common.Classify(err))
}

func patientRecord() entity.CanonicalRecord {
	rec := entity.NewCanonicalRecord("201")
	rec.Fields[constants.PatientName] = "Roe, Jane Q"
	rec.Fields[constants.DOB] = "02/02/1950"
	rec.Fields[constants.MRN] = "M-1"
	rec.Fields[constants.EpisodeStart] = "01/01/2024"
	rec.Fields[constants.NPI] = "1234567890"
	rec.Fields[constants.ICDCodes] = "I10, E11.9"
	return rec
}

func TestCreatePatient(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "bot", r.PostForm.Get("username"))
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"granted","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/patient/create", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer granted", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		info := body["patientInfo"].(map[string]any)
		assert.Equal(t, "Jane", info["firstName"])
		assert.Equal(t, "Q", info["middleInitial"])
		assert.Equal(t, "Roe", info["lastName"])
		assert.Equal(t, "0000", info["insuranceNumber"])
		assert.Equal(t, "M-1", info["medicalRecordNumber"])
		status := body["patientStatus"].(map[string]any)
		assert.Equal(t, "01/01/2024", status["certPeriodFrom"])
		assert.Equal(t, "02/29/2024", status["certPeriodTo"])
		assert.Len(t, status["diagnoses"], 2)
		assert.Equal(t, float64(11), body["clinicianId"].(map[string]any)["id"])
		assert.Equal(t, "1234567890", body["physicianNpi"])
		_, _ = io.WriteString(w, `{"isSuccess":true,"value":{"id":4812,"actionType":"Add"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, srv, func(cfg *common.DAConfig) {
		cfg.Token = ""
		cfg.TokenURL = srv.URL + "/token"
		cfg.Username = "bot"
		cfg.Password = "pw"
	})

	for range 2 {
		created, err := c.Create(t.Context(), patientRecord())
		require.NoError(t, err)
		assert.Equal(t, "4812", created.ExternalID)
		assert.Equal(t, "Add:4812", created.Message)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestCreatePatient_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"isSuccess":false,"errorMessage":"Patient with MRN M-1 already admitted"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).CreatePatient(t.Context(), patientRecord())
	require.Error(t, err)
	assert.Equal(t, common.KindCollaboratorError, common.Classify(err))
	assert.Equal(t, "Patient with MRN M-1 already admitted", common.Message(err))
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := da.NewClient(t.Context(), common.DAConfig{BaseURL: "https://da.test"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
