package common_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/internal/common"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := common.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Run.ReportFormat)
	assert.Equal(t, "patient", cfg.Run.Kind)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, 300*time.Second, cfg.WAV.Timeout)
	assert.Equal(t, "prebuilt-layout", cfg.DocAI.FallbackModel)
	assert.False(t, cfg.DocAI.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orderbridge.yaml")
	body := `
run:
  report_dir: /data/reports
  report_format: xlsx
  kind: order
  required_fields: [mrn, dob]
ledger:
  driver: redis
  redis_addr: cache:6379
da:
  base_url: https://da.example.test
  clinician_id: 42
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("REDIS_ADDR", "override:6380")
	t.Setenv("DA_CARETAKER_ID", "77")
	t.Setenv("WAV_TIMEOUT", "10s")

	cfg, err := common.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/reports", cfg.Run.ReportDir)
	assert.Equal(t, "xlsx", cfg.Run.ReportFormat)
	assert.Equal(t, "order", cfg.Run.Kind)
	assert.Equal(t, []string{"mrn", "dob"}, cfg.Run.RequiredFields)
	assert.Equal(t, "orderbridge", cfg.Run.ReportPrefix)
	assert.Equal(t, "override:6380", cfg.Ledger.RedisAddr)
	assert.Equal(t, "https://da.example.test", cfg.DA.BaseURL)
	assert.Equal(t, int64(42), cfg.DA.ClinicianID)
	assert.Equal(t, int64(77), cfg.DA.CaretakerID)
	assert.Equal(t, 10*time.Second, cfg.WAV.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_BadEnvKeepsDefault(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	t.Setenv("RUN_INTERVAL", "soon")

	cfg, err := common.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int32(5), cfg.Ledger.MaxConns)
	assert.Equal(t, 15*time.Minute, cfg.Server.Interval)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := common.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeConfig, appErr.Code)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*common.Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*common.Config) {}, ok: true},
		{name: "bad format", mutate: func(c *common.Config) { c.Run.ReportFormat = "pdf" }},
		{name: "bad kind", mutate: func(c *common.Config) { c.Run.Kind = "invoice" }},
		{name: "postgres without dsn", mutate: func(c *common.Config) { c.Ledger.Driver = "postgres"; c.Ledger.DSN = "" }},
		{name: "report ledger without file", mutate: func(c *common.Config) { c.Ledger.Driver = "report" }},
		{name: "report ledger with file", mutate: func(c *common.Config) { c.Ledger.Driver = "report"; c.Ledger.PriorReport = "prev.xlsx" }, ok: true},
		{name: "no ledger", mutate: func(c *common.Config) { c.Ledger.Driver = "none" }, ok: true},
		{name: "unknown ledger", mutate: func(c *common.Config) { c.Ledger.Driver = "mongo" }},
		{name: "docai key without endpoint", mutate: func(c *common.Config) { c.DocAI.Key = "k" }},
		{name: "docai complete", mutate: func(c *common.Config) { c.DocAI.Key = "k"; c.DocAI.Endpoint = "https://di.test" }, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := common.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestDAConfig_Validate(t *testing.T) {
	cfg := common.DefaultConfig().DA
	assert.Error(t, cfg.Validate())

	cfg.Token = "static"
	assert.NoError(t, cfg.Validate())

	cfg.Token = ""
	cfg.TokenURL, cfg.Username, cfg.Password = "https://da.test/token", "bot", "secret"
	assert.NoError(t, cfg.Validate())
}
