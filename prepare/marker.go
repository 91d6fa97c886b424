package prepare

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/storage"
	"github.com/kbukum/amiprep/validation"
)

// Marker records a completed stage.
type Marker struct {
	Stage       string    `json:"stage"`
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	CompletedAt time.Time `json:"completed_at"`
	// Items is the number of artifacts the stage produced.
	Items int `json:"items"`
}

func (r *Runner) readMarker(ctx context.Context, stage string) (*Marker, error) {
	data, err := storage.ReadAll(ctx, r.store, r.layout.MarkerKey(stage))
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Marker
	err = json.Unmarshal(data, &m)
	if err == nil {
		if appErr := validation.New().RequiredUUID("run_id", m.RunID).Validate(); appErr != nil {
			err = appErr
		}
	}
	if err != nil {
		// An unreadable marker means the stage has to run again.
		r.log.Warn("ignoring corrupt stage marker", logger.Fields(logger.FieldStage, stage, logger.FieldError, err.Error()))
		return nil, nil
	}
	return &m, nil
}

func (r *Runner) writeMarker(ctx context.Context, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperrors.Internal(err)
	}
	return storage.WriteBytes(ctx, r.store, r.layout.MarkerKey(m.Stage), data)
}

// invalidate drops the marker of stage. The dataset archive is consumed
// outside the pipeline, so it goes with its marker.
func (r *Runner) invalidate(ctx context.Context, stage string) error {
	if err := r.store.Delete(ctx, r.layout.MarkerKey(stage)); err != nil {
		return err
	}
	if stage == StageDataset {
		return r.store.Delete(ctx, r.layout.DatasetKey())
	}
	return nil
}
