package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const account = "0xAbCdEf0000000000000000000000000000000001"

func TestSettingsValidate(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	high := decimal.NewFromInt(51)
	ok := decimal.RequireFromString("0.5")

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"custom slippage", func(s *Settings) { s.CustomSlippage = &ok }, false},
		{"missing account", func(s *Settings) { s.Account = "" }, true},
		{"negative slippage", func(s *Settings) { s.CustomSlippage = &neg }, true},
		{"slippage above cap", func(s *Settings) { s.CustomSlippage = &high }, true},
		{"zero deadline", func(s *Settings) { s.TxDeadline = 0 }, true},
		{"deadline above cap", func(s *Settings) { s.TxDeadline = MaxTxDeadline + time.Minute }, true},
		{"unknown routing", func(s *Settings) { s.RoutingPreference = "SOMETIMES" }, true},
		{"auto routing", func(s *Settings) { s.RoutingPreference = "AUTO" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings(account)
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "swap.db")
	store, err := NewStorage(path)
	assert.NoError(t, err)
	defer store.Close()

	slip := decimal.RequireFromString("0.75")
	first := DefaultSettings(account)
	first.CustomSlippage = &slip
	first.Protocols = []string{"V3", "V4"}
	assert.NoError(t, store.SaveSettings(first))

	second := DefaultSettings("0x2222222222222222222222222222222222222222")
	second.RoutingPreference = domain.RoutingPreferenceFastest
	third := DefaultSettings("0x3333333333333333333333333333333333333333")
	third.TxDeadline = time.Hour
	assert.NoError(t, store.SaveSettingsBatch([]Settings{second, third}))
	assert.NoError(t, store.SaveSettingsBatch(nil))

	all, err := store.LoadAllSettings()
	assert.NoError(t, err)
	assert.Equal(t, len(all), 3)

	got, found := all["0xabcdef0000000000000000000000000000000001"]
	assert.True(t, found)
	assert.Equal(t, got.CustomSlippage.String(), "0.75")
	assert.DeepEqual(t, got.Protocols, []string{"V3", "V4"})
	assert.Equal(t, all["0x2222222222222222222222222222222222222222"].RoutingPreference, domain.RoutingPreferenceFastest)
	assert.Equal(t, all["0x3333333333333333333333333333333333333333"].TxDeadline, time.Hour)
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	store, err := NewStorage(filepath.Join(t.TempDir(), "swap.db"))
	assert.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.SaveSettings(DefaultSettings(account)))
	assert.NoError(t, store.db.Set(SettingsBucket, []byte("garbage"), []byte("{not json")))
	broken := DefaultSettings("0x4444444444444444444444444444444444444444")
	broken.TxDeadline = 0
	assert.NoError(t, store.SaveSettings(broken))

	all, err := store.LoadAllSettings()
	assert.NoError(t, err)
	assert.Equal(t, len(all), 1)
}
