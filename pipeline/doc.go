// Package pipeline provides composable, pull-based data pipeline operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect
// or ForEach. Each stage pulls from the previous stage on demand.
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value
//   - Ordered: concurrent Map with a bounded worker count that keeps input order
//
// Corpus stages are written as pipelines over meeting IDs or streams:
//
//	ids := pipeline.FromSlice(meetingIDs)
//	merged := pipeline.Map(ids, mergeMeeting)
//	kept := pipeline.Filter(merged, hasSpeakers)
//	err := pipeline.ForEach(ctx, kept, writeMeeting)
package pipeline
