// Package config loads configuration for the corpus preparation binaries.
//
// It uses Viper to read a YAML file (config.yml, searched in the working
// directory, cmd/<service>/ and config/) and godotenv to load an optional
// .env file. Every environment variable is bound under several nested key
// spellings, so DATASET_SPLIT_ENABLED overrides dataset.split.enabled.
//
// # Usage
//
//	var cfg prepare.Config
//	if err := config.Load("amiprep", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
package config
