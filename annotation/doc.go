// Package annotation turns AMI per-speaker segment records into per-meeting
// speech timelines.
//
// Each record is one `{meeting}{part}.{speaker}.segments.xml` document whose
// `segment` elements carry `transcriber_start` and `transcriber_end` in
// seconds. Merge groups the records of a meeting by speaker and converts the
// bounds to milliseconds:
//
//	m, err := annotation.NewMerger(log).Merge("ES2002", records)
//	if errors.HasCode(err, errors.ErrCodeMalformedAnnotation) {
//	    // skip the meeting
//	}
//
// Only the first record seen for a speaker contributes intervals. Later
// records for the same speaker are ignored without being read.
//
// A Meeting marshals to the intermediate JSON record stored per meeting:
// speakers in sorted order followed by a trailing "meeting" key.
package annotation
