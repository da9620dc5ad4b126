// Package archive copies submission documents and final job results to an
// object store so runs can be audited after the NEOS server forgets them.
//
// Layout under the destination prefix:
//
//	<prefix>/<job_number>/submission.xml
//	<prefix>/<job_number>/result.txt
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/3leaps/goneos/pkg/provider"
	"github.com/3leaps/goneos/pkg/provider/file"
	"github.com/3leaps/goneos/pkg/provider/s3"
)

// Object names within a job's archive directory.
const (
	SubmissionObject = "submission.xml"
	ResultObject     = "result.txt"
)

var (
	// ErrExists is returned when an archived object is already present and
	// overwriting was not requested.
	ErrExists = errors.New("archive object already exists")

	// ErrNotWritable is returned when the provider cannot store objects.
	ErrNotWritable = errors.New("archive provider is not writable")

	// ErrNotReadable is returned when the provider cannot read objects back.
	ErrNotReadable = errors.New("archive provider is not readable")
)

// S3Options carries connection settings for s3 destinations.
type S3Options struct {
	Region   string
	Endpoint string
	Profile  string
}

// Archiver writes job artifacts to a destination.
type Archiver struct {
	provider provider.Provider
	dest     *Destination
	force    bool
}

// Open builds the provider for dest and returns an archiver over it.
func Open(ctx context.Context, dest *Destination, opts S3Options) (*Archiver, error) {
	var p provider.Provider
	switch dest.Scheme {
	case SchemeS3:
		sp, err := s3.New(ctx, s3.Config{
			Bucket:         dest.Bucket,
			Region:         opts.Region,
			Endpoint:       opts.Endpoint,
			Profile:        opts.Profile,
			ForcePathStyle: opts.Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		p = sp
	case SchemeFile:
		fp, err := file.New(file.Config{BaseDir: dest.Dir})
		if err != nil {
			return nil, err
		}
		p = fp
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, dest.Scheme)
	}
	return New(p, dest), nil
}

// New creates an archiver over an existing provider.
func New(p provider.Provider, dest *Destination) *Archiver {
	return &Archiver{provider: p, dest: dest}
}

// WithForce allows existing objects to be overwritten.
func (a *Archiver) WithForce(force bool) *Archiver {
	a.force = force
	return a
}

// Destination returns the parsed destination.
func (a *Archiver) Destination() *Destination {
	return a.dest
}

// Key returns the object key for name under jobNumber.
func (a *Archiver) Key(jobNumber int, name string) string {
	return a.dest.Key(strconv.Itoa(jobNumber), name)
}

// JobURI returns the URI of the job's archive directory.
func (a *Archiver) JobURI(jobNumber int) string {
	return strings.TrimSuffix(a.dest.String(), "/") + "/" + strconv.Itoa(jobNumber) + "/"
}

// PutSubmission stores the submission document for jobNumber.
func (a *Archiver) PutSubmission(ctx context.Context, jobNumber int, document []byte) (string, error) {
	return a.put(ctx, a.Key(jobNumber, SubmissionObject), document, "application/xml")
}

// PutResult stores the final results for jobNumber.
func (a *Archiver) PutResult(ctx context.Context, jobNumber int, result []byte) (string, error) {
	return a.put(ctx, a.Key(jobNumber, ResultObject), result, "text/plain; charset=utf-8")
}

// Result reads back the archived results for jobNumber.
func (a *Archiver) Result(ctx context.Context, jobNumber int) ([]byte, error) {
	getter, ok := a.provider.(provider.ObjectGetter)
	if !ok {
		return nil, ErrNotReadable
	}
	body, _, err := getter.GetObject(ctx, a.Key(jobNumber, ResultObject))
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return io.ReadAll(body)
}

// Close releases the underlying provider.
func (a *Archiver) Close() error {
	return a.provider.Close()
}

func (a *Archiver) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	putter, ok := a.provider.(provider.ObjectPutter)
	if !ok {
		return "", ErrNotWritable
	}

	if !a.force {
		_, err := a.provider.Head(ctx, key)
		switch {
		case err == nil:
			return "", fmt.Errorf("%w: %s", ErrExists, key)
		case !provider.IsNotFound(err):
			return "", err
		}
	}

	if err := putter.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return key, nil
}
