// Package remote mirrors store records to and from an OCI registry.
//
// Based on go-containerregistry patterns:
//   - Authentication via keychain or explicit basic credentials
//   - Records packed into zstd layers, grouped by digest prefix
//   - Image config labels carry the record count for sanity checks
package remote

const (
	DefaultConcurrency = 4

	labelRecords = "dev.castore.records"
	labelFormat  = "dev.castore.format"

	// layerFormat identifies the PackLayer encoding.
	layerFormat = "records/v1"
)
