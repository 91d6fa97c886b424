// Package validation checks configuration and stage records before the
// pipeline acts on them.
//
// Struct tag validation covers most configuration sections:
//
//	type SplitConfig struct {
//	    DevRatio float64 `json:"dev_ratio" validate:"gt=0,lt=1"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules use the collecting Validator:
//
//	v := validation.New()
//	v.Pattern("corpus.meetings[0]", id, `^[A-Z]{2}[0-9]{4}$`)
//	v.OneOf("dataset.grouping", cfg.Grouping, []string{"sorted", "meeting"})
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
