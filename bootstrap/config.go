package bootstrap

import (
	"github.com/kbukum/amiprep/config"
)

// Config is the constraint on application configuration types. Structs
// that embed config.ServiceConfig and define ApplyDefaults and Validate
// satisfy it.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
