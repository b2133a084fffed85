package ledger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/ledger"
	"github.com/joseph-ayodele/orderbridge/internal/reconcile"
)

func openMemory(t *testing.T) *ledger.SQLStore {
	t.Helper()
	s, err := ledger.OpenSQLite(t.Context(), "file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStore_RememberAndLookup(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	got, err := s.Lookup(ctx, constants.KindPatient, "M1")
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, s.Remember(ctx, entity.PriorKnownRecord{
		Kind: constants.KindPatient, Key: "M1", Status: constants.StatusFailed, DocID: "d1", RecordedAt: at,
	}))
	require.NoError(t, s.Remember(ctx, entity.PriorKnownRecord{
		Kind: constants.KindPatient, Key: "M1", Status: constants.StatusCreated, ExternalID: "77", DocID: "d2", RecordedAt: at,
	}))

	got, err = s.Lookup(ctx, constants.KindPatient, "M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constants.StatusCreated, got.Status)
	assert.Equal(t, "77", got.ExternalID)
	assert.Equal(t, "d2", got.DocID)
	assert.True(t, at.Equal(got.RecordedAt))

	// same key under another kind is a different record
	got, err = s.Lookup(ctx, constants.KindOrder, "M1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, ledger.HealthCheck(ctx, s, time.Second, nil))
}

func TestSQLStore_SurvivesReopen(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db")
	ctx := t.Context()

	s, err := ledger.OpenSQLite(ctx, dsn, nil)
	require.NoError(t, err)
	require.NoError(t, s.Remember(ctx, entity.PriorKnownRecord{Kind: constants.KindOrder, Key: "O-1", Status: constants.StatusCreated}))
	require.NoError(t, s.Close())

	s, err = ledger.OpenSQLite(ctx, dsn, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Lookup(ctx, constants.KindOrder, "O-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constants.StatusCreated, got.Status)
}

type countingCreator struct{ calls int }

func (c *countingCreator) Create(context.Context, entity.CanonicalRecord) (reconcile.Creation, error) {
	c.calls++
	return reconcile.Creation{ExternalID: "501", Message: "Add:501"}, nil
}

func TestSQLStore_TwoRunsCreateOnce(t *testing.T) {
	s := openMemory(t)
	creator := &countingCreator{}

	rec := entity.NewCanonicalRecord("d9")
	rec.Fields[constants.PatientName] = "Roe, Jane"
	rec.Fields[constants.DOB] = "02/02/1950"
	rec.Fields[constants.MRN] = "M-9"
	rec.Fields[constants.StartOfCare] = "01/01/2024"
	rec.Fields[constants.NPI] = "1234567890"

	first := reconcile.NewReconciler(constants.KindPatient, creator, s, nil).Reconcile(t.Context(), rec)
	second := reconcile.NewReconciler(constants.KindPatient, creator, s, nil).Reconcile(t.Context(), rec)

	assert.Equal(t, constants.StatusCreated, first.Status())
	assert.Equal(t, constants.StatusAlreadyExists, second.Status())
	assert.Equal(t, 1, creator.calls)
}

type fakeRedis struct {
	hashes map[string]map[string]string
	closed bool
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	return redis.NewMapStringStringResult(f.hashes[key], nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	h := f.hashes[key]
	if h == nil {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisStore(t *testing.T) {
	client := &fakeRedis{hashes: make(map[string]map[string]string)}
	s := ledger.NewRedisStore(client, nil)
	ctx := t.Context()

	got, err := s.Lookup(ctx, constants.KindOrder, "O-7")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Remember(ctx, entity.PriorKnownRecord{Kind: constants.KindOrder, Key: "O-7", Status: constants.StatusCreated, ExternalID: "x1"}))
	assert.Equal(t, "Created", client.hashes[ledger.RedisKey(constants.KindOrder, "O-7")]["status"])

	got, err = s.Lookup(ctx, constants.KindOrder, "O-7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x1", got.ExternalID)
	assert.False(t, got.RecordedAt.IsZero())

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())
	assert.True(t, client.closed)
}

func TestReportStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prior.csv")
	body := "ID,Medical Record No,DA Upload Status\n" +
		"d1,M-1,Passed\n" +
		"d2,M-2,Failed\n" +
		"d3,M-1,Failed\n" +
		"d4,,Created\n" +
		"d5,M-5,Comment only\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := ledger.OpenReport(path, nil)
	require.NoError(t, err)
	ctx := t.Context()

	tests := []struct {
		kind   constants.RecordKind
		key    string
		want   constants.ResultStatus
		absent bool
	}{
		{kind: constants.KindPatient, key: "M-1", want: constants.StatusCreated},
		{kind: constants.KindPatient, key: "M-2", want: constants.StatusFailed},
		{kind: constants.KindPatient, key: "M-5", absent: true},
		{kind: constants.KindOrder, key: "d4", want: constants.StatusCreated},
		{kind: constants.KindPatient, key: "M-404", absent: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.key, func(t *testing.T) {
			got, err := s.Lookup(ctx, tt.kind, tt.key)
			require.NoError(t, err)
			if tt.absent {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Status)
		})
	}

	require.NoError(t, s.Remember(ctx, entity.PriorKnownRecord{Kind: constants.KindPatient, Key: "M-2", Status: constants.StatusCreated}))
	got, err := s.Lookup(ctx, constants.KindPatient, "M-2")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCreated, got.Status)
}

func TestOpen_Drivers(t *testing.T) {
	s, err := ledger.Open(t.Context(), common.LedgerConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	got, err := s.Lookup(t.Context(), constants.KindPatient, "x")
	assert.NoError(t, err)
	assert.Nil(t, got)

	s, err = ledger.Open(t.Context(), common.LedgerConfig{Driver: "sqlite", DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = ledger.Open(t.Context(), common.LedgerConfig{Driver: "mongo"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
