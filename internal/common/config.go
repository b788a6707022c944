package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Auth     AuthConfig
	Invoice  InvoiceConfig
}

// StorageConfig describes where each tenant's CSV log and database live.
// CSVPath and DSN are templates; "{tenant}" is replaced with the tenant name.
type StorageConfig struct {
	DataDir          string
	CSVPath          string
	Driver           string // sqlite | postgres
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds text acquisition settings
type OCRConfig struct {
	Engine        string // tesseract | azure | gosseract
	NativeBackend string // reader | pdftotext
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	Language      string
	TessdataDir   string
	DPI           int
	Threshold     int
	MaxPages      int
	AzureEndpoint string
	AzureKey      string
}

// PipelineConfig holds per-document processing limits
type PipelineConfig struct {
	DocumentTimeout time.Duration
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// AuthConfig points at the bcrypt user store
type AuthConfig struct {
	UsersFile string
}

// InvoiceConfig holds manual invoice settings
type InvoiceConfig struct {
	OutputDir string
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is read first when present; real env vars win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	return &Config{
		Storage: StorageConfig{
			DataDir:          dataDir,
			CSVPath:          getEnv("CSV_PATH", dataDir+"/users/{tenant}/invoices.csv"),
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", dataDir+"/users/{tenant}/invoices.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			NativeBackend: getEnv("PDF_TEXT_BACKEND", "reader"),
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			Language:      getEnv("OCR_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 200),
			Threshold:     getEnvAsInt("OCR_THRESHOLD", 200),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			AzureEndpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:      getEnv("AZURE_VISION_KEY", ""),
		},
		Pipeline: PipelineConfig{
			DocumentTimeout: getEnvAsDuration("DOCUMENT_TIMEOUT", 2*time.Minute),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
		},
		Auth: AuthConfig{
			UsersFile: getEnv("USERS_FILE", dataDir+"/users.json"),
		},
		Invoice: InvoiceConfig{
			OutputDir: getEnv("INVOICE_OUTPUT_DIR", dataDir+"/generated"),
		},
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q must be sqlite or postgres", c.Storage.Driver), ErrInvalidInput)
	}
	if c.Storage.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.CSVPath == "" {
		return NewAppError("CONFIG_ERROR", "CSV_PATH is required", ErrInvalidInput)
	}
	// 0 would turn every pixel white
	if c.OCR.Threshold < 1 || c.OCR.Threshold > 255 {
		return NewAppError("CONFIG_ERROR", "OCR_THRESHOLD must be within 1..255", ErrInvalidInput)
	}
	if strings.EqualFold(c.OCR.Engine, "azure") && (c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "") {
		return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure engine", ErrInvalidInput)
	}
	return nil
}

// DebugEnabled reports whether LOG_DEBUG is set.
func DebugEnabled() bool {
	return getEnvAsBool("LOG_DEBUG", false)
}
