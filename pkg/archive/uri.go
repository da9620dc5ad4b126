package archive

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the destination could not be parsed.
	ErrInvalidURI = errors.New("invalid archive URI")

	// ErrUnsupportedScheme indicates the URI scheme is not supported.
	ErrUnsupportedScheme = errors.New("unsupported archive scheme")

	// ErrMissingBucket indicates an s3 URI without a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// Schemes accepted by ParseDestination.
const (
	SchemeS3   = "s3"
	SchemeFile = "file"
)

// Destination is a parsed archive location.
//
// Example destinations:
//   - s3://bucket/neos/runs/
//   - file:///var/lib/goneos/archive
//   - ./archive
type Destination struct {
	// Scheme is "s3" or "file".
	Scheme string

	// Bucket is the S3 bucket. Empty for file destinations.
	Bucket string

	// Dir is the absolute base directory for file destinations.
	Dir string

	// Prefix is the key prefix under the bucket or directory, without
	// leading or trailing slashes.
	Prefix string
}

// String returns the destination in canonical form.
func (d *Destination) String() string {
	switch d.Scheme {
	case SchemeS3:
		if d.Prefix == "" {
			return fmt.Sprintf("s3://%s/", d.Bucket)
		}
		return fmt.Sprintf("s3://%s/%s/", d.Bucket, d.Prefix)
	default:
		return "file://" + filepath.ToSlash(d.Dir)
	}
}

// Key joins the prefix and the given path elements with slashes.
func (d *Destination) Key(elem ...string) string {
	parts := make([]string, 0, len(elem)+1)
	if d.Prefix != "" {
		parts = append(parts, d.Prefix)
	}
	parts = append(parts, elem...)
	return strings.Join(parts, "/")
}

// ParseDestination parses an archive URI.
//
// Supported formats:
//   - s3://bucket
//   - s3://bucket/prefix/
//   - file:///abs/dir
//   - a plain filesystem path, resolved against the working directory
func ParseDestination(uri string) (*Destination, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return fileDestination(uri)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	remainder := uri[schemeEnd+3:]

	switch scheme {
	case SchemeFile:
		if remainder == "" {
			return nil, fmt.Errorf("%w: missing path in %s", ErrInvalidURI, uri)
		}
		return fileDestination(remainder)
	case SchemeS3:
	default:
		return nil, fmt.Errorf("%w: %s (supported: s3, file)", ErrUnsupportedScheme, scheme)
	}

	bucket, key, _ := strings.Cut(remainder, "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}
	if _, err := url.Parse("s3://" + bucket + "/"); err != nil {
		return nil, fmt.Errorf("%w: invalid bucket name %q", ErrInvalidURI, bucket)
	}

	return &Destination{
		Scheme: SchemeS3,
		Bucket: bucket,
		Prefix: strings.Trim(key, "/"),
	}, nil
}

func fileDestination(path string) (*Destination, error) {
	abs, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return &Destination{Scheme: SchemeFile, Dir: abs}, nil
}
