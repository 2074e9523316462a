package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Document URL templates. CZSource takes the probe offset, SKSource the
	// Monday date and BGSource the href scraped from BGReference.
	CZSource    string
	SKSource    string
	BGSource    string
	BGReference string

	// Upload
	FTPHost     string
	FTPUsername string
	FTPPassword string
	FTPPath     string
	FTPProtocol string // ftps or sftp
	KnownHosts  string // sftp only

	ErrorAPI string

	CheckPeriod time.Duration
	RunOnStart  bool

	ExportDir string
	LogDir    string
	LogLevel  string

	HTTPTimeout   time.Duration
	FetchRetries  int
	FetchMaxBytes int64
	ProbeRate     float64

	StrictHostnames bool
	DedupeDomains   bool

	NatsURL  string
	HTTPPort string
	Timezone *time.Location
}

var ErrMissingSource = errors.New("source url template is not configured")

func Load() *Config {
	return &Config{
		CZSource:    getEnv("CZ_SOURCE", ""),
		SKSource:    getEnv("SK_SOURCE", ""),
		BGSource:    getEnv("BG_SOURCE", ""),
		BGReference: getEnv("BG_REFERENCE", ""),

		FTPHost:     getEnv("FTP_HOST", ""),
		FTPUsername: getEnv("FTP_USERNAME", ""),
		FTPPassword: getEnv("FTP_PASSWORD", ""),
		FTPPath:     getEnv("FTP_PATH", "/"),
		FTPProtocol: strings.ToLower(getEnv("FTP_PROTOCOL", "ftps")),
		KnownHosts:  getEnv("SFTP_KNOWN_HOSTS", ""),

		ErrorAPI: getEnv("ERROR_API", ""),

		CheckPeriod: time.Duration(getEnvInt("CHECK_PERIOD", 60)) * time.Minute,
		RunOnStart:  os.Getenv("TEST") != "" || getEnvBool("RUN_ON_START", false),

		ExportDir: getEnv("EXPORT_DIR", "/opt/crawler/exports"),
		LogDir:    getEnv("LOG_DIR", "/opt/crawler/logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 60*time.Second),
		FetchRetries:  getEnvInt("FETCH_RETRIES", 0),
		FetchMaxBytes: int64(getEnvInt("FETCH_MAX_BYTES", 64*1024*1024)),
		ProbeRate:     getEnvFloat("PROBE_RATE", 5),

		StrictHostnames: getEnvBool("STRICT_HOSTNAMES", true),
		DedupeDomains:   getEnvBool("DEDUPE_DOMAINS", true),

		NatsURL:  getEnv("NATS_URL", ""),
		HTTPPort: getEnv("HTTP_PORT", ""),
		Timezone: getEnvLocation("TIMEZONE", time.UTC),
	}
}

// Validate reports configuration that makes the crawler unable to run at all.
func (c *Config) Validate() error {
	var errs []error
	if c.CZSource == "" {
		errs = append(errs, errors.New("CZ_SOURCE: "+ErrMissingSource.Error()))
	}
	if c.SKSource == "" {
		errs = append(errs, errors.New("SK_SOURCE: "+ErrMissingSource.Error()))
	}
	if c.BGSource == "" || c.BGReference == "" {
		errs = append(errs, errors.New("BG_SOURCE/BG_REFERENCE: "+ErrMissingSource.Error()))
	}
	if c.CheckPeriod <= 0 {
		errs = append(errs, errors.New("CHECK_PERIOD must be positive"))
	}
	if c.FTPProtocol != "ftps" && c.FTPProtocol != "sftp" {
		errs = append(errs, errors.New("FTP_PROTOCOL must be ftps or sftp"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvLocation(key string, defaultVal *time.Location) *time.Location {
	if val := os.Getenv(key); val != "" {
		if loc, err := time.LoadLocation(val); err == nil {
			return loc
		}
	}
	return defaultVal
}
