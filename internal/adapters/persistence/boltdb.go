package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const (
	SettingsBucket = "swap_settings"

	DefaultDBPath = "./data/swap.db"

	DefaultTxDeadline = 30 * time.Minute
	MaxTxDeadline     = 3 * 24 * time.Hour
)

var MaxCustomSlippage = decimal.NewFromInt(50)

// Settings are the per-account swap preferences.
type Settings struct {
	Account string `json:"account"`
	// CustomSlippage is a percentage; nil means auto slippage.
	CustomSlippage    *decimal.Decimal         `json:"customSlippage,omitempty"`
	TxDeadline        time.Duration            `json:"txDeadline"`
	RoutingPreference domain.RoutingPreference `json:"routingPreference"`
	Protocols         []string                 `json:"protocols,omitempty"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// DefaultSettings returns the settings used for an account with nothing stored.
func DefaultSettings(account string) Settings {
	return Settings{
		Account:           account,
		TxDeadline:        DefaultTxDeadline,
		RoutingPreference: domain.RoutingPreferenceBestPrice,
	}
}

func (s Settings) Validate() error {
	if s.Account == "" {
		return fmt.Errorf("settings: account required")
	}
	if s.CustomSlippage != nil {
		if s.CustomSlippage.IsNegative() || s.CustomSlippage.GreaterThan(MaxCustomSlippage) {
			return fmt.Errorf("settings: slippage %s out of range [0, %s]", s.CustomSlippage, MaxCustomSlippage)
		}
	}
	if s.TxDeadline <= 0 || s.TxDeadline > MaxTxDeadline {
		return fmt.Errorf("settings: deadline %s out of range", s.TxDeadline)
	}
	if _, ok := domain.ParseRoutingPreference(string(s.RoutingPreference)); !ok {
		return fmt.Errorf("settings: unknown routing preference %q", s.RoutingPreference)
	}
	return nil
}

func settingsKey(account string) []byte {
	return []byte(strings.ToLower(account))
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[settingsStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SaveSettings(settings Settings) error {
	data, err := sonic.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.db.Set(SettingsBucket, settingsKey(settings.Account), data)
}

// SaveSettingsBatch writes many accounts in one transaction.
func (s *Storage) SaveSettingsBatch(all []Settings) error {
	if len(all) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, settings := range all {
		data, err := sonic.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings for %s: %w", settings.Account, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(SettingsBucket),
			Key:    settingsKey(settings.Account),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add settings for %s to batch: %w", settings.Account, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(all)).Msg("[settingsStorage] FAILED to execute batch")
		return err
	}

	log.Info().Int("count", len(all)).Msg("[settingsStorage] saved settings batch")
	return nil
}

// LoadAllSettings returns every stored account keyed by lowercase address.
// Corrupt entries are skipped.
func (s *Storage) LoadAllSettings() (map[string]Settings, error) {
	data, err := s.db.List(SettingsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	out := make(map[string]Settings, len(data))
	skipped := 0
	for account, value := range data {
		var stored Settings
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("account", account).Err(err).Msg("[settingsStorage] failed to unmarshal settings, skipping")
			skipped++
			continue
		}
		if err := stored.Validate(); err != nil {
			log.Warn().Str("account", account).Err(err).Msg("[settingsStorage] invalid stored settings, skipping")
			skipped++
			continue
		}
		out[account] = stored
	}

	log.Info().
		Int("total_in_db", len(data)).
		Int("loaded", len(out)).
		Int("skipped", skipped).
		Msg("[settingsStorage] settings loading completed")
	return out, nil
}
