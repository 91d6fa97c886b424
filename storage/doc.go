// Package storage is the artifact store used by every pipeline stage.
//
// Inputs (annotation records, channel WAV files) and outputs (meeting
// documents, per-speaker audio, the dataset file, stage markers) are all
// addressed by slash-separated keys relative to the store root.
//
// # Backends
//
//   - storage/local: a directory on the local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services such as MinIO
//   - storage/testutil: an in-memory store for tests
//
// # Configuration
//
//	storage:
//	  provider: "local"
//	  base_path: "./data"
//
//	storage:
//	  provider: "s3"
//	  bucket: "ami-corpus"
//	  endpoint: "http://localhost:9000"
package storage
