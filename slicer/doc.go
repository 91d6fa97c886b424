// Package slicer cuts each speaker's annotated intervals out of a meeting's
// channel files and concatenates them into one stream per speaker.
//
// Channels are visited in letter order (a, b, c, d). A channel that is
// missing, unreadable or in a different format than the first decoded
// channel is logged and skipped. Speakers whose stream ends up empty are
// dropped from the result.
package slicer
