package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Upload   UploadConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN         string
	MaxConns    int
	MaxIdle     int
	DialTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AsyncWorkers    int
	AsyncQueueSize  int
}

// OCRConfig holds acquisition chain configuration. Executable locations
// are resolved here once at startup and passed down explicitly; nothing
// in the chain consults globals.
type OCRConfig struct {
	RemoteEndpoint string
	RemoteAPIKey   string
	RemoteTimeout  time.Duration
	RemoteRPS      float64
	Language       string
	Engine         int

	Pdftoppm    string
	Tesseract   string
	TessdataDir string
	DPI         int

	PreferTextMatch bool
}

// UploadConfig holds upload storage configuration
type UploadConfig struct {
	Dir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:         getEnv("DB_URL", "file:receipts.db"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 10),
			MaxIdle:     getEnvAsInt("DB_MAX_IDLE", 2),
			DialTimeout: getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			AsyncWorkers:    getEnvAsInt("PROCESS_WORKERS", 2),
			AsyncQueueSize:  getEnvAsInt("PROCESS_QUEUE_SIZE", 64),
		},
		OCR: OCRConfig{
			RemoteEndpoint: getEnv("OCR_API_URL", "https://api.ocr.space/parse/image"),
			RemoteAPIKey:   getEnv("OCR_API_KEY", ""),
			RemoteTimeout:  getEnvAsDuration("OCR_API_TIMEOUT", 30*time.Second),
			RemoteRPS:      getEnvAsFloat64("OCR_API_RPS", 1),
			Language:       getEnv("OCR_LANGUAGE", "eng"),
			Engine:         getEnvAsInt("OCR_ENGINE", 1),

			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),

			PreferTextMatch: getEnvAsBool("MERCHANT_PREFER_TEXT_MATCH", false),
		},
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "./receipts"),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Upload.Dir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	return nil
}
