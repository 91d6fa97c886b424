// Package errors provides unified error handling for the corpus preparation
// pipeline.
//
// Every failure that crosses a component boundary is an *AppError carrying an
// ErrorCode. The pipeline decides per code whether to recover locally, skip a
// meeting, or abort the run:
//
//   - MALFORMED_ANNOTATION: the meeting is skipped
//   - MISSING_AUDIO_CHANNEL, EMPTY_SPEAKER_STREAM: recovered and logged
//   - SHAPE_MISMATCH: dataset assembly aborts
//
// # Usage
//
//	if errors.HasCode(err, errors.ErrCodeMalformedAnnotation) {
//	    log.Warn("skipping meeting", logger.ErrorFields("merge", err))
//	}
package errors
