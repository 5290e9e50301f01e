package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type StorageConfig struct {
	// DBPath is the path to the BoltDB file holding persisted swap settings.
	// Default: "./data/swap.db"
	DBPath string

	// PersistenceEnabled controls whether settings survive restarts.
	// Default: true
	PersistenceEnabled bool
}

func (c *StorageConfig) Key() string {
	return STORAGE_CONFIG_KEY
}

func (c *StorageConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("BOLT_DB_PATH", "./data/swap.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("SETTINGS_PERSISTENCE_ENABLED", "true") == "true"
	return nil
}

func (c *StorageConfig) Validate() error {
	return nil
}
