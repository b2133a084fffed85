package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds all application configuration
type Config struct {
	Run       RunConfig       `yaml:"run"`
	DA        DAConfig        `yaml:"da"`
	DocAI     DocAIConfig     `yaml:"docai"`
	WAV       WAVConfig       `yaml:"wav"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Storage   StorageConfig   `yaml:"storage"`
	OCR       OCRConfig       `yaml:"ocr"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
}

// RunConfig holds per-run pipeline settings
type RunConfig struct {
	ReportDir      string   `yaml:"report_dir"`
	ReportPrefix   string   `yaml:"report_prefix"`
	ReportFormat   string   `yaml:"report_format"`
	Kind           string   `yaml:"kind"`
	HelperID       string   `yaml:"helper_id"`
	DateColumn     string   `yaml:"date_column"`
	ServiceLine    string   `yaml:"service_line_column"`
	RequiredFields []string `yaml:"required_fields"`
}

// DAConfig holds document platform settings
type DAConfig struct {
	BaseURL      string        `yaml:"base_url"`
	PatientPath  string        `yaml:"patient_path"`
	TokenURL     string        `yaml:"token_url"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Token        string        `yaml:"token"`
	ClinicianID  int64         `yaml:"clinician_id"`
	CaretakerID  int64         `yaml:"caretaker_id"`
	Timeout      time.Duration `yaml:"timeout"`
	HelperHeader string        `yaml:"helper_header"`
}

// DocAIConfig holds document-AI settings
type DocAIConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Key           string        `yaml:"key"`
	ModelID       string        `yaml:"model_id"`
	FallbackModel string        `yaml:"fallback_model"`
	APIVersion    string        `yaml:"api_version"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Timeout       time.Duration `yaml:"timeout"`
}

// WAVConfig holds backend bulk-upload settings
type WAVConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig holds prior-record store settings
type LedgerConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres | redis | report | none
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPassword    string        `yaml:"redis_password"`
	RedisDB          int           `yaml:"redis_db"`
	PriorReport      string        `yaml:"prior_report"`
}

// StorageConfig holds report artifact storage settings
type StorageConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Container        string `yaml:"container"`
}

// OCRConfig holds text-layer and OCR tool settings
type OCRConfig struct {
	Pdftotext   string `yaml:"pdftotext"`
	Pdftoppm    string `yaml:"pdftoppm"`
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
	TessdataDir string `yaml:"tessdata_dir"`
}

// TelemetryConfig holds tracing settings; tracing is off without an endpoint
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// ServerConfig holds daemon settings
type ServerConfig struct {
	GRPCAddr string        `yaml:"grpc_addr"`
	Interval time.Duration `yaml:"interval"`
	InboxDir string        `yaml:"inbox_dir"`
}

// DefaultConfig returns the configuration used when neither a file nor env overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ReportDir:    "./reports",
			ReportPrefix: "orderbridge",
			ReportFormat: "csv",
			Kind:         "patient",
			DateColumn:   "Received On",
			ServiceLine:  "Service Line",
		},
		DA: DAConfig{
			BaseURL:      "https://api.doctoralliance.com",
			PatientPath:  "/patient/create",
			Timeout:      60 * time.Second,
			HelperHeader: "X-Helper-Id",
		},
		DocAI: DocAIConfig{
			FallbackModel: "prebuilt-layout",
			APIVersion:    "2024-11-30",
			PollInterval:  time.Second,
			Timeout:       30 * time.Second,
		},
		WAV: WAVConfig{
			Timeout: 300 * time.Second,
		},
		Ledger: LedgerConfig{
			Driver:          "sqlite",
			DSN:             "file:orderbridge.db?_pragma=busy_timeout(5000)",
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			RedisAddr:       "localhost:6379",
		},
		Storage: StorageConfig{
			Container: "orderbridge-reports",
		},
		OCR: OCRConfig{
			Lang: "eng",
			DPI:  300,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "orderbridge",
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			Interval: 15 * time.Minute,
			InboxDir: "./inbox",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (if any), then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config file "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Run.ReportDir = getEnv("REPORT_DIR", c.Run.ReportDir)
	c.Run.ReportPrefix = getEnv("REPORT_PREFIX", c.Run.ReportPrefix)
	c.Run.ReportFormat = strings.ToLower(getEnv("REPORT_FORMAT", c.Run.ReportFormat))
	c.Run.Kind = getEnv("RUN_KIND", c.Run.Kind)
	c.Run.HelperID = getEnv("HELPER_ID", c.Run.HelperID)
	c.Run.DateColumn = getEnv("RUN_DATE_COLUMN", c.Run.DateColumn)

	c.DA.BaseURL = getEnv("DA_BASE_URL", c.DA.BaseURL)
	c.DA.PatientPath = getEnv("DA_PATIENT_PATH", c.DA.PatientPath)
	c.DA.TokenURL = getEnv("DA_TOKEN_URL", c.DA.TokenURL)
	c.DA.Username = getEnv("DA_USERNAME", c.DA.Username)
	c.DA.Password = getEnv("DA_PASSWORD", c.DA.Password)
	c.DA.Token = getEnv("DA_TOKEN", c.DA.Token)
	c.DA.ClinicianID = getEnvAsInt64("DA_CLINICIAN_ID", c.DA.ClinicianID)
	c.DA.CaretakerID = getEnvAsInt64("DA_CARETAKER_ID", c.DA.CaretakerID)
	c.DA.Timeout = getEnvAsDuration("DA_TIMEOUT", c.DA.Timeout)

	c.DocAI.Endpoint = getEnv("AZURE_DI_ENDPOINT", c.DocAI.Endpoint)
	c.DocAI.Key = getEnv("AZURE_DI_KEY", c.DocAI.Key)
	c.DocAI.ModelID = getEnv("AZURE_DI_MODEL", c.DocAI.ModelID)
	c.DocAI.Timeout = getEnvAsDuration("AZURE_DI_TIMEOUT", c.DocAI.Timeout)

	c.WAV.BaseURL = getEnv("WAV_BASE_URL", c.WAV.BaseURL)
	c.WAV.APIKey = getEnv("WAV_API_KEY", c.WAV.APIKey)
	c.WAV.Timeout = getEnvAsDuration("WAV_TIMEOUT", c.WAV.Timeout)

	c.Ledger.Driver = getEnv("LEDGER_DRIVER", c.Ledger.Driver)
	c.Ledger.DSN = getEnv("DB_URL", c.Ledger.DSN)
	c.Ledger.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Ledger.MaxConns)
	c.Ledger.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Ledger.MinConns)
	c.Ledger.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Ledger.MaxConnLifetime)
	c.Ledger.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Ledger.MaxConnIdleTime)
	c.Ledger.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Ledger.DialTimeout)
	c.Ledger.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Ledger.StatementTimeout)
	c.Ledger.RedisAddr = getEnv("REDIS_ADDR", c.Ledger.RedisAddr)
	c.Ledger.RedisPassword = getEnv("REDIS_PASSWORD", c.Ledger.RedisPassword)
	c.Ledger.RedisDB = getEnvAsInt("REDIS_DB", c.Ledger.RedisDB)
	c.Ledger.PriorReport = getEnv("PRIOR_REPORT", c.Ledger.PriorReport)

	c.Storage.ConnectionString = getEnv("AZURE_STORAGE_CONNECTION_STRING", c.Storage.ConnectionString)
	c.Storage.Container = getEnv("AZURE_STORAGE_CONTAINER", c.Storage.Container)

	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)

	c.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.Interval = getEnvAsDuration("RUN_INTERVAL", c.Server.Interval)
	c.Server.InboxDir = getEnv("INBOX_DIR", c.Server.InboxDir)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Run.ReportDir == "" {
		return NewAppError(CodeConfig, "REPORT_DIR is required", ErrInvalidInput)
	}
	switch c.Run.ReportFormat {
	case "csv", "xlsx":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("REPORT_FORMAT %q must be csv or xlsx", c.Run.ReportFormat), ErrInvalidInput)
	}
	switch c.Run.Kind {
	case "patient", "order":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("RUN_KIND %q must be patient or order", c.Run.Kind), ErrInvalidInput)
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres":
		if c.Ledger.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the "+c.Ledger.Driver+" ledger", ErrInvalidInput)
		}
	case "redis":
		if c.Ledger.RedisAddr == "" {
			return NewAppError(CodeConfig, "REDIS_ADDR is required for the redis ledger", ErrInvalidInput)
		}
	case "report":
		if c.Ledger.PriorReport == "" {
			return NewAppError(CodeConfig, "PRIOR_REPORT is required for the report ledger", ErrInvalidInput)
		}
	case "none":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("LEDGER_DRIVER %q is not supported", c.Ledger.Driver), ErrInvalidInput)
	}
	if (c.DocAI.Endpoint == "") != (c.DocAI.Key == "") {
		return NewAppError(CodeConfig, "AZURE_DI_ENDPOINT and AZURE_DI_KEY must be set together", ErrInvalidInput)
	}
	return nil
}

// Validate checks the settings needed to talk to the document platform.
func (c *DAConfig) Validate() error {
	if c.BaseURL == "" {
		return NewAppError(CodeConfig, "DA_BASE_URL is required", ErrInvalidInput)
	}
	if c.Token == "" && (c.TokenURL == "" || c.Username == "" || c.Password == "") {
		return NewAppError(CodeConfig, "DA_TOKEN or DA_TOKEN_URL with DA_USERNAME and DA_PASSWORD is required", ErrInvalidInput)
	}
	return nil
}

// Enabled reports whether document-AI analysis is configured.
func (c *DocAIConfig) Enabled() bool {
	return c.Endpoint != "" && c.Key != ""
}
