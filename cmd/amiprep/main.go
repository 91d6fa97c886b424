// Command amiprep prepares the AMI meeting corpus for speaker diarization
// training.
package main

import (
	"os"

	_ "github.com/kbukum/amiprep/storage/local"
	_ "github.com/kbukum/amiprep/storage/s3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
