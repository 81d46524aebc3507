package config

import (
	"errors"
	"fmt"
	"strings"
)

// RolesBackend selects where the role document is read from.
type RolesBackend string

const (
	// RolesBackendBlob reads from Azure Blob Storage with the app token.
	RolesBackendBlob RolesBackend = "blob"
	// RolesBackendS3 reads from an S3-compatible bucket with AWS credentials.
	RolesBackendS3 RolesBackend = "s3"
)

// UnmarshalText implements encoding.TextUnmarshaler for RolesBackend.
func (b *RolesBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "blob", "s3":
		*b = RolesBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid RolesBackend: %q (valid options: blob, s3)", v)
	}
}

// RolesConfig locates the role document.
type RolesConfig struct {
	Backend RolesBackend `env:"BACKEND" envDefault:"blob"`

	StorageAccountName string `env:"STORAGE_ACCOUNT_NAME"`
	ContainerName      string `env:"CONTAINER_NAME"`
	FilePath           string `env:"FILE_PATH"`
	// BlobEndpoint overrides https://{account}.blob.core.windows.net (e.g. Azurite).
	BlobEndpoint string `env:"BLOB_ENDPOINT"`
	// StorageScope is the app-token scope used to read the blob.
	StorageScope string `env:"STORAGE_SCOPE" envDefault:"https://storage.azure.com/.default"`

	// Selector is a JMESPath expression selecting the roles array in the document.
	Selector string `env:"SELECTOR" envDefault:"roles"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config contains settings for the S3 role backend.
type S3Config struct {
	Bucket       string `env:"BUCKET"`
	Key          string `env:"KEY"            envDefault:"roles.json"`
	Region       string `env:"REGION"         envDefault:"us-east-1"`
	Endpoint     string `env:"ENDPOINT"`
	UsePathStyle bool   `env:"USE_PATH_STYLE" envDefault:"false"`
	AccessKey    string `env:"ACCESS_KEY"`
	SecretKey    string `env:"SECRET_KEY"`
}

// Sanitize trims values and restores defaults.
func (c *RolesConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = RolesBackendBlob
	}
	c.StorageAccountName = strings.TrimSpace(c.StorageAccountName)
	c.ContainerName = strings.TrimSpace(c.ContainerName)
	c.FilePath = strings.TrimPrefix(strings.TrimSpace(c.FilePath), "/")
	c.BlobEndpoint = strings.TrimSuffix(strings.TrimSpace(c.BlobEndpoint), "/")
	if c.StorageScope = strings.TrimSpace(c.StorageScope); c.StorageScope == "" {
		c.StorageScope = "https://storage.azure.com/.default"
	}
	if c.Selector = strings.TrimSpace(c.Selector); c.Selector == "" {
		c.Selector = "roles"
	}
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Key = strings.TrimPrefix(strings.TrimSpace(c.S3.Key), "/")
}

// Validate reports missing location settings for the selected backend.
func (c *RolesConfig) Validate() error {
	var errs []error
	switch c.Backend {
	case RolesBackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("ROLES_S3_BUCKET is required when ROLES_BACKEND=s3"))
		}
		if c.S3.Key == "" {
			errs = append(errs, errors.New("ROLES_S3_KEY is required when ROLES_BACKEND=s3"))
		}
	default:
		if c.StorageAccountName == "" && c.BlobEndpoint == "" {
			errs = append(errs, errors.New("ROLES_STORAGE_ACCOUNT_NAME or ROLES_BLOB_ENDPOINT is required"))
		}
		if c.ContainerName == "" {
			errs = append(errs, errors.New("ROLES_CONTAINER_NAME is required"))
		}
		if c.FilePath == "" {
			errs = append(errs, errors.New("ROLES_FILE_PATH is required"))
		}
	}
	return errors.Join(errs...)
}
