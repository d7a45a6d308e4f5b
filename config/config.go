package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Upload backends understood by the storage package.
const (
	UploadDisk       = "disk"
	UploadCloudinary = "cloudinary"
	UploadMinio      = "minio"
)

type Config struct {
	Port    string
	GinMode string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins   []string
	AuthRateLimit int

	UploadBackend string
	UploadDir     string
	CloudinaryURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:           getenv("PORT", "4444"),
		GinMode:        getenv("GIN_MODE", "debug"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getenv("MONGODB_DATABASE", "blog"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		UploadBackend:  strings.ToLower(getenv("UPLOAD_BACKEND", UploadDisk)),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getenv("MINIO_BUCKET", "uploads"),
		MinioPublicURL: strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
	}

	var err error
	if cfg.MongoTransactions, err = getbool("MONGODB_TRANSACTIONS", false); err != nil {
		return nil, err
	}
	if cfg.MinioUseSSL, err = getbool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = time.ParseDuration(getenv("JWT_TTL", "720h")); err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.AuthRateLimit, err = strconv.Atoi(getenv("AUTH_RATE_LIMIT", "60")); err != nil {
		return nil, fmt.Errorf("AUTH_RATE_LIMIT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" || c.JWTSecret == "" {
		return errors.New("JWT_SECRET and MONGODB_URI must be set")
	}
	if c.AuthRateLimit <= 0 {
		return errors.New("AUTH_RATE_LIMIT must be positive")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}

	switch c.UploadBackend {
	case UploadDisk:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR must be set for the disk backend")
		}
	case UploadCloudinary:
		if c.CloudinaryURL == "" {
			return errors.New("CLOUDINARY_URL must be set for the cloudinary backend")
		}
	case UploadMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set for the minio backend")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.UploadBackend)
	}
	return nil
}

func (c *Config) Release() bool {
	return c.GinMode == "release"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
