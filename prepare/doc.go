// Package prepare runs the corpus preparation stages against an artifact
// store.
//
// The stages run in a fixed order:
//
//	annotations  metadata/segments/*  -> meetings/{id}.json
//	utterances   meetings/*, audio/*  -> utterances/{id}/{speaker}.wav
//	dataset      utterances/*         -> dataset.npz
//
// Every stage materialises its output before the next one starts and
// writes markers/{stage}.json on success. A stage whose marker exists is
// skipped unless pipeline.force is set; running a stage invalidates the
// markers of the stages after it.
package prepare
