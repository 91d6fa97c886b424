// Package version exposes build metadata for the amiprep binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/amiprep/version.Version=1.0.0" ./cmd/amiprep
package version
