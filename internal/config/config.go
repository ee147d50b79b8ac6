// Package config loads the two configuration layers spec §6.4 and SPEC_FULL
// §A.3 describe: an optional dbal.toml file for adapter-level settings, and
// an environment-variable contract for blob-backend selection.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"dbal/internal/dbalerr"
)

// FileConfig is the optional dbal.toml document: adapter-level settings not
// covered by the environment contract.
type FileConfig struct {
	SQLite struct {
		Path         string `toml:"path"`
		BusyTimeout  int    `toml:"busy_timeout_ms"`
	} `toml:"sqlite"`
	List struct {
		DefaultPageSize int `toml:"default_page_size"`
	} `toml:"list"`
	Schema struct {
		SearchPath string `toml:"search_path"`
	} `toml:"schema"`
}

// LoadFile reads and decodes an optional TOML config file. A missing file is
// not an error; LoadFile returns the zero value.
func LoadFile(path string) (*FileConfig, error) {
	cfg := &FileConfig{}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, dbalerr.ValidationError("parsing config file %q: %v", path, err)
	}
	return cfg, nil
}

// BlobBackend names the three backend kinds §4.3 supports.
type BlobBackend string

const (
	BlobBackendMemory     BlobBackend = "memory"
	BlobBackendFilesystem BlobBackend = "filesystem"
	BlobBackendS3         BlobBackend = "s3"
)

// BlobConfig is the environment-variable contract of spec §6.4.
type BlobConfig struct {
	Backend      string `validate:"required,oneof=memory filesystem fs s3"`
	Dir          string `validate:"required_if=Backend filesystem,required_if=Backend fs"`
	Endpoint     string `validate:"required_if=Backend s3"`
	Bucket       string `validate:"required_if=Backend s3"`
	Region       string `validate:"required_if=Backend s3"`
	AccessKey    string `validate:"required_if=Backend s3"`
	SecretKey    string `validate:"required_if=Backend s3"`
	UsePathStyle bool
	// KeyPrefix namespaces every operation's key under this value when set
	// (DBAL_BLOB_PREFIX), letting one backend serve multiple tenants
	// without a separate bucket/root per tenant.
	KeyPrefix string
}

// NormalizedBackend resolves the "fs" alias to "filesystem" (spec §6.4:
// `DBAL_BLOB_BACKEND ∈ {memory, filesystem|fs, s3}`).
func (c BlobConfig) NormalizedBackend() BlobBackend {
	if strings.EqualFold(c.Backend, "fs") {
		return BlobBackendFilesystem
	}
	return BlobBackend(strings.ToLower(c.Backend))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

// LoadBlobConfig reads §6.4's env-var contract and validates it field by
// field. Missing required variables surface as ValidationError.
func LoadBlobConfig() (*BlobConfig, error) {
	cfg := &BlobConfig{
		Backend:      getEnv("DBAL_BLOB_BACKEND", "memory"),
		Dir:          os.Getenv("DBAL_BLOB_DIR"),
		Endpoint:     os.Getenv("DBAL_BLOB_URL"),
		Bucket:       os.Getenv("DBAL_BLOB_BUCKET"),
		Region:       getEnv("DBAL_BLOB_REGION", "us-east-1"),
		AccessKey:    os.Getenv("DBAL_BLOB_ACCESS_KEY"),
		SecretKey:    os.Getenv("DBAL_BLOB_SECRET_KEY"),
		UsePathStyle: getEnvBool("DBAL_BLOB_PATH_STYLE", true),
		KeyPrefix:    os.Getenv("DBAL_BLOB_PREFIX"),
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
			}
			return nil, dbalerr.ValidationError("blob config: %s", strings.Join(msgs, "; "))
		}
		return nil, dbalerr.ValidationError("blob config: %v", err)
	}

	return cfg, nil
}
