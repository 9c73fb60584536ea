package common

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Upload     UploadConfig
	Output     OutputConfig
	Gemini     GeminiConfig
	OCR        OCRConfig
	Processing ProcessingConfig
	Jobs       JobsConfig
	LogLevel   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string
	Mode        string // "debug" or "release"
	CORSOrigins []string
}

// UploadConfig holds file-upload configuration
type UploadConfig struct {
	Dir               string
	MaxSizeMB         int
	MaxFilesPerUpload int
}

// OutputConfig holds export artifact configuration
type OutputConfig struct {
	Dir string
}

// GeminiConfig holds the primary extraction provider configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OCRConfig holds provider selection and the offline fallback toolchain
type OCRConfig struct {
	Provider      string // "gemini"
	Fallback      string // "tesseract"
	Tesseract     string // binary name or absolute path
	Pdftoppm      string
	TesseractLang string
	TessdataDir   string
	Timeout       time.Duration // per provider call
	MaxRetries    int           // attempts per provider beyond the first
}

// ProcessingConfig holds the per-document pipeline knobs
type ProcessingConfig struct {
	ImageDPI       int
	MaxPages       int // 0 = no limit on rasterized pages
	Preprocess     bool
	Denoise        bool
	Contrast       bool
	MaxFilesPerJob int
	FilePause      time.Duration // rate-limit safeguard between files
}

// JobsConfig selects the job store backend
type JobsConfig struct {
	Backend    string // "memory" or "sqlite"
	SQLitePath string
}

// LoadConfig loads configuration from environment variables (prefix PDF2EXCEL).
func LoadConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("PDF2EXCEL")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8000")
	v.SetDefault("mode", "release")
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("output_dir", "./outputs")
	v.SetDefault("max_upload_size_mb", 50)
	v.SetDefault("max_files_per_upload", 20)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ocr_provider", "gemini")
	v.SetDefault("fallback_ocr", "tesseract")
	v.SetDefault("tesseract", "tesseract")
	v.SetDefault("pdftoppm", "pdftoppm")
	v.SetDefault("tesseract_lang", "eng")
	v.SetDefault("tessdata_dir", "")
	v.SetDefault("ocr_timeout", 30*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("image_dpi", 300)
	v.SetDefault("max_pages", 0)
	v.SetDefault("enable_preprocessing", true)
	v.SetDefault("preprocessing_denoise", true)
	v.SetDefault("preprocessing_contrast", true)
	v.SetDefault("max_files_per_job", 20)
	v.SetDefault("file_pause", 100*time.Millisecond)
	v.SetDefault("job_store", "memory")
	v.SetDefault("job_store_sqlite_path", "./jobs.db")
	v.SetDefault("log_level", "info")

	return &Config{
		Server: ServerConfig{
			Addr:        v.GetString("addr"),
			Mode:        v.GetString("mode"),
			CORSOrigins: splitCSV(v.GetString("cors_origins")),
		},
		Upload: UploadConfig{
			Dir:               v.GetString("upload_dir"),
			MaxSizeMB:         v.GetInt("max_upload_size_mb"),
			MaxFilesPerUpload: v.GetInt("max_files_per_upload"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output_dir"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini_api_key"),
			Model:   v.GetString("gemini_model"),
			BaseURL: v.GetString("gemini_base_url"),
		},
		OCR: OCRConfig{
			Provider:      v.GetString("ocr_provider"),
			Fallback:      v.GetString("fallback_ocr"),
			Tesseract:     v.GetString("tesseract"),
			Pdftoppm:      v.GetString("pdftoppm"),
			TesseractLang: v.GetString("tesseract_lang"),
			TessdataDir:   v.GetString("tessdata_dir"),
			Timeout:       v.GetDuration("ocr_timeout"),
			MaxRetries:    v.GetInt("max_retries"),
		},
		Processing: ProcessingConfig{
			ImageDPI:       v.GetInt("image_dpi"),
			MaxPages:       v.GetInt("max_pages"),
			Preprocess:     v.GetBool("enable_preprocessing"),
			Denoise:        v.GetBool("preprocessing_denoise"),
			Contrast:       v.GetBool("preprocessing_contrast"),
			MaxFilesPerJob: v.GetInt("max_files_per_job"),
			FilePause:      v.GetDuration("file_pause"),
		},
		Jobs: JobsConfig{
			Backend:    v.GetString("job_store"),
			SQLitePath: v.GetString("job_store_sqlite_path"),
		},
		LogLevel: v.GetString("log_level"),
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Upload.Dir == "" {
		return NewAppError("CONFIG_ERROR", "PDF2EXCEL_UPLOAD_DIR is required", ErrInvalidInput)
	}
	if c.Output.Dir == "" {
		return NewAppError("CONFIG_ERROR", "PDF2EXCEL_OUTPUT_DIR is required", ErrInvalidInput)
	}
	if c.OCR.Provider == "gemini" && c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "PDF2EXCEL_GEMINI_API_KEY is required when ocr_provider is gemini", ErrInvalidInput)
	}
	if c.Jobs.Backend != "memory" && c.Jobs.Backend != "sqlite" {
		return NewAppError("CONFIG_ERROR", "PDF2EXCEL_JOB_STORE must be memory or sqlite", ErrInvalidInput)
	}
	if c.Processing.MaxFilesPerJob <= 0 {
		return NewAppError("CONFIG_ERROR", "PDF2EXCEL_MAX_FILES_PER_JOB must be positive", ErrInvalidInput)
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
