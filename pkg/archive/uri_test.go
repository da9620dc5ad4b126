package archive

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDestination(t *testing.T) {
	abs, err := filepath.Abs("archive")
	require.NoError(t, err)

	tests := []struct {
		name    string
		uri     string
		wantErr error
		want    *Destination
	}{
		{
			name: "bucket only",
			uri:  "s3://results",
			want: &Destination{Scheme: SchemeS3, Bucket: "results"},
		},
		{
			name: "bucket with trailing slash",
			uri:  "s3://results/",
			want: &Destination{Scheme: SchemeS3, Bucket: "results"},
		},
		{
			name: "bucket with prefix",
			uri:  "s3://results/neos/runs/",
			want: &Destination{Scheme: SchemeS3, Bucket: "results", Prefix: "neos/runs"},
		},
		{
			name: "uppercase scheme",
			uri:  "S3://results/x",
			want: &Destination{Scheme: SchemeS3, Bucket: "results", Prefix: "x"},
		},
		{
			name: "file URI",
			uri:  "file:///var/lib/goneos",
			want: &Destination{Scheme: SchemeFile, Dir: filepath.FromSlash("/var/lib/goneos")},
		},
		{
			name: "relative path",
			uri:  "archive",
			want: &Destination{Scheme: SchemeFile, Dir: abs},
		},
		{
			name:    "empty",
			uri:     "  ",
			wantErr: ErrInvalidURI,
		},
		{
			name:    "missing bucket",
			uri:     "s3:///prefix",
			wantErr: ErrMissingBucket,
		},
		{
			name:    "unsupported scheme",
			uri:     "gs://bucket/",
			wantErr: ErrUnsupportedScheme,
		},
		{
			name:    "file URI without path",
			uri:     "file://",
			wantErr: ErrInvalidURI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDestination(tt.uri)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDestination_String(t *testing.T) {
	assert.Equal(t, "s3://results/", (&Destination{Scheme: SchemeS3, Bucket: "results"}).String())
	assert.Equal(t, "s3://results/neos/", (&Destination{Scheme: SchemeS3, Bucket: "results", Prefix: "neos"}).String())
	assert.Equal(t, "file:///srv/archive", (&Destination{Scheme: SchemeFile, Dir: filepath.FromSlash("/srv/archive")}).String())
}

func TestDestination_Key(t *testing.T) {
	d := &Destination{Scheme: SchemeS3, Bucket: "b", Prefix: "neos/runs"}
	assert.Equal(t, "neos/runs/42/result.txt", d.Key("42", "result.txt"))

	root := &Destination{Scheme: SchemeS3, Bucket: "b"}
	assert.Equal(t, "42/result.txt", root.Key("42", "result.txt"))
}
