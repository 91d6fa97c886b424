// Package features converts per-speaker streams into feature matrices.
//
// A Transform is the spectral kernel: it maps mono samples to a
// frames x Dim() matrix. LogMel is the default kernel (25 ms Hamming
// windows every 10 ms, 40 HTK mel bands, natural log). The Extractor walks
// every persisted stream in key order and tags each matrix with its meeting
// and speaker, so the output order is fully determined by the store.
//
// Shuffle is a separate seeded step and is never applied implicitly.
package features
