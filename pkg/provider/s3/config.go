// Package s3 archives objects to AWS S3 and S3-compatible storage.
package s3

// Config configures an S3 provider.
//
// Credentials come from the AWS SDK v2 default chain (environment, shared
// config/credentials files, instance roles) unless AccessKeyID and
// SecretAccessKey are both set. Profile selects a shared-config profile.
//
// When Region is unresolved and no Endpoint is set, us-east-1 is used.
// S3-compatible stores (MinIO, Wasabi) set Endpoint and usually
// ForcePathStyle.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	Region   string
	Endpoint string
	Profile  string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the URL path instead of the host.
	ForcePathStyle bool
}

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
