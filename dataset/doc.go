// Package dataset assembles tagged feature matrices into fixed-shape
// [speakers, frames, dim] tensors and writes them as a NumPy .npz archive.
//
// Assembly sorts matrices by row count, longest first, and cuts them into
// groups of exactly Speakers matrices. Each group is truncated to its
// shortest member. With GroupByMeeting the groups are formed from the
// meeting ID carried by each matrix instead of from sort position.
//
// The archive is written with stored entries and a fixed timestamp, so the
// same tensors always produce the same bytes.
package dataset
