package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/app"
	"github.com/joseph-ayodele/orderbridge/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	cfg := common.DefaultConfig()
	cfg.Run.ReportDir = t.TempDir()
	cfg.DA.BaseURL = "http://da.test"
	cfg.DA.Token = "token"
	cfg.Ledger.Driver = "none"
	return cfg
}

func TestBuild(t *testing.T) {
	a, err := app.Build(t.Context(), testConfig(t), app.Options{DryRun: true}, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, constants.KindPatient, a.Kind)
	assert.NotNil(t, a.Runner)
	assert.Nil(t, a.WAV)
	assert.Nil(t, a.Store)

	opts := a.RunOptions("", "", time.Time{}, time.Time{})
	assert.Equal(t, "orderbridge_patient", opts.Report.Prefix)
	assert.Equal(t, "csv", opts.Report.Format)
	assert.Equal(t, "Received On", opts.DateColumn)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*common.Config)
		opts   app.Options
	}{
		{"missing platform credentials", func(c *common.Config) { c.DA.Token = "" }, app.Options{}},
		{"order run without backend", func(c *common.Config) {}, app.Options{Kind: constants.KindOrder}},
		{"unknown required argument", func(c *common.Config) { c.Run.RequiredFields = []string{"shoeSize"} }, app.Options{}},
		{"blob without connection string", func(c *common.Config) {}, app.Options{PublishBlob: true}},
		{"unknown ledger", func(c *common.Config) { c.Ledger.Driver = "mongo" }, app.Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := app.Build(t.Context(), cfg, tt.opts, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestParseWindow(t *testing.T) {
	from, to, err := app.ParseWindow("01/15/2024", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), to)

	from, to, err = app.ParseWindow("", "")
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = app.ParseWindow("03/15/2024", "01/15/2024")
	assert.Error(t, err)
	_, _, err = app.ParseWindow("soon", "")
	assert.Error(t, err)
}

func TestInbox(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.csv", "notes.txt", "~$a.xlsx", ".hidden.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ID\n1\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	in := app.Inbox{Dir: dir}
	pending, err := in.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.xlsx")}, pending)

	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	dest, err := in.Archive(pending[0], true, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, app.DirProcessed, "a.csv"), dest)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("ID\n2\n"), 0o644))
	dest, err = in.Archive(filepath.Join(dir, "a.csv"), true, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, app.DirProcessed, "a_2024-03-05_14-07-09.csv"), dest)

	dest, err = in.Archive(pending[1], false, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, app.DirFailed, "b.xlsx"), dest)

	pending, err = in.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
