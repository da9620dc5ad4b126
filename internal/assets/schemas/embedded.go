// Package schemasassets provides embedded JSON schemas so validation works
// in installed binaries regardless of the working directory.
package schemasassets

import _ "embed"

// SubmissionManifestSchema is the embedded submission-manifest JSON schema.
//
//go:embed submission-manifest.schema.json
var SubmissionManifestSchema []byte
