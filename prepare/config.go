package prepare

import (
	"fmt"
	"slices"

	"github.com/kbukum/amiprep/config"
	"github.com/kbukum/amiprep/corpus"
	"github.com/kbukum/amiprep/dataset"
	"github.com/kbukum/amiprep/features"
	"github.com/kbukum/amiprep/observability"
	"github.com/kbukum/amiprep/resilience"
	"github.com/kbukum/amiprep/storage"
	"github.com/kbukum/amiprep/validation"
)

// Config is the configuration of the amiprep binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage       storage.Config         `yaml:"storage" mapstructure:"storage"`
	Layout        corpus.Layout          `yaml:"layout" mapstructure:"layout"`
	Corpus        CorpusConfig           `yaml:"corpus" mapstructure:"corpus"`
	Features      FeaturesConfig         `yaml:"features" mapstructure:"features"`
	Dataset       dataset.Options        `yaml:"dataset" mapstructure:"dataset"`
	Pipeline      PipelineConfig         `yaml:"pipeline" mapstructure:"pipeline"`
	Retry         resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	Observability observability.Config   `yaml:"observability" mapstructure:"observability"`
}

// CorpusConfig selects meetings.
type CorpusConfig struct {
	// Meetings overrides the AMI catalogue when non-empty.
	Meetings []string `yaml:"meetings" mapstructure:"meetings"`
	// SkipSlicingPrefixes names meeting series that are merged but not sliced.
	SkipSlicingPrefixes []string `yaml:"skip_slicing_prefixes" mapstructure:"skip_slicing_prefixes"`
}

// FeaturesConfig configures extraction.
type FeaturesConfig struct {
	features.LogMelConfig `yaml:",inline" mapstructure:",squash"`

	Workers int    `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	Shuffle bool   `yaml:"shuffle" mapstructure:"shuffle"`
	// Seed drives the shuffle. Zero is a valid seed.
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// PipelineConfig selects stages.
type PipelineConfig struct {
	// Stages to run; empty means all of them.
	Stages []string `yaml:"stages" mapstructure:"stages"`
	// Force reruns stages whose completion marker exists.
	Force bool `yaml:"force" mapstructure:"force"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "amiprep"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Layout.ApplyDefaults()
	if len(c.Corpus.Meetings) == 0 {
		c.Corpus.Meetings = corpus.DefaultMeetings()
	}
	if c.Corpus.SkipSlicingPrefixes == nil {
		c.Corpus.SkipSlicingPrefixes = []string{"IB"}
	}
	c.Features.LogMelConfig.ApplyDefaults()
	if c.Features.Workers == 0 {
		c.Features.Workers = 1
	}
	c.Dataset.ApplyDefaults()
	if len(c.Pipeline.Stages) == 0 {
		c.Pipeline.Stages = slices.Clone(Stages)
	}
	c.Retry.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// AMI meeting IDs are a two letter scenario code and four digits.
const meetingIDPattern = `^[A-Z]{2}[0-9]{4}$`

// Validate checks every section and the cross-field rules.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	for _, section := range []any{&c.Features, &c.Dataset, &c.Observability} {
		if err := validation.Validate(section); err != nil {
			return err
		}
	}

	v := validation.New()
	for i, s := range c.Pipeline.Stages {
		v.OneOf(fmt.Sprintf("pipeline.stages[%d]", i), s, Stages)
	}
	v.Custom(len(c.Pipeline.Stages) > 0, "pipeline.stages", "must select at least one stage")
	for i, id := range c.Corpus.Meetings {
		field := fmt.Sprintf("corpus.meetings[%d]", i)
		v.Required(field, id).Pattern(field, id, meetingIDPattern)
	}
	v.Min("retry.max_attempts", c.Retry.MaxAttempts, 1)
	if c.Dataset.Split.Enabled {
		v.OpenRange("dataset.split.dev_ratio", c.Dataset.Split.DevRatio, 0, 1)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
