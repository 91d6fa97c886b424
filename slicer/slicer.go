package slicer

import (
	"context"
	"fmt"
	"sort"

	"github.com/kbukum/amiprep/annotation"
	"github.com/kbukum/amiprep/audio"
	"github.com/kbukum/amiprep/corpus"
	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/storage"
)

// Slicer reads channel audio from a store.
type Slicer struct {
	store  storage.Storage
	layout corpus.Layout
	log    *logger.Logger
}

// New creates a Slicer. A nil logger uses the "slicer" component logger.
func New(store storage.Storage, layout corpus.Layout, log *logger.Logger) *Slicer {
	if log == nil {
		log = logger.Get("slicer")
	}
	return &Slicer{store: store, layout: layout, log: log}
}

// Slice builds the speaker streams of one meeting. Missing channels and
// empty speakers are recovered locally; only context cancellation is
// returned as an error.
func (s *Slicer) Slice(ctx context.Context, m *annotation.Meeting) (map[string]audio.Clip, error) {
	speakers := m.SpeakerIDs()
	streams := make(map[string]audio.Clip, len(speakers))
	var format audio.Format

	for _, ch := range corpus.Channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clip, err := s.loadChannel(ctx, m.ID, ch)
		if err == nil && format != (audio.Format{}) && clip.Format != format {
			err = fmt.Errorf("format %+v differs from %+v", clip.Format, format)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			appErr := apperrors.MissingAudioChannel(m.ID, ch, err)
			s.log.Warn("skipping audio channel", logger.Fields(
				logger.FieldMeeting, m.ID,
				logger.FieldChannel, ch,
				logger.FieldError, appErr.Error(),
			))
			continue
		}
		format = clip.Format

		s.log.Info("slicing speech", logger.Fields(logger.FieldMeeting, m.ID, logger.FieldChannel, ch))
		for _, speaker := range speakers {
			stream := streams[speaker]
			for _, iv := range m.Speakers[speaker] {
				// Formats were checked above, so Append cannot fail here.
				stream, _ = stream.Append(clip.Slice(iv.StartMs, iv.EndMs))
			}
			streams[speaker] = stream
		}
	}

	for _, speaker := range speakers {
		if stream, ok := streams[speaker]; !ok || stream.Empty() {
			delete(streams, speaker)
			s.log.Debug("dropping speaker", logger.Fields(
				logger.FieldMeeting, m.ID,
				logger.FieldSpeaker, speaker,
				logger.FieldError, apperrors.EmptySpeakerStream(m.ID, speaker).Error(),
			))
		}
	}
	return streams, nil
}

func (s *Slicer) loadChannel(ctx context.Context, meetingID, channel string) (audio.Clip, error) {
	data, err := storage.ReadAll(ctx, s.store, s.layout.AudioKey(meetingID, channel))
	if err != nil {
		return audio.Clip{}, err
	}
	clip, err := audio.DecodeBytes(data)
	if err != nil {
		return audio.Clip{}, err
	}
	return clip, nil
}

// Save encodes every stream as WAV under the meeting's utterance keys, in
// speaker order.
func (s *Slicer) Save(ctx context.Context, meetingID string, streams map[string]audio.Clip) error {
	speakers := make([]string, 0, len(streams))
	for speaker := range streams {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)
	for _, speaker := range speakers {
		data, err := audio.EncodeBytes(streams[speaker])
		if err != nil {
			return apperrors.Internal(err).WithDetails(map[string]any{"meeting": meetingID, "speaker": speaker})
		}
		if err := storage.WriteBytes(ctx, s.store, s.layout.UtteranceKey(meetingID, speaker), data); err != nil {
			return err
		}
	}
	return nil
}
