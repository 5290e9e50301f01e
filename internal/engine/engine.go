// Package engine is the facade the transports talk to. It owns swap
// sessions and the collaborators they share.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
	"github.com/hxuan190/swap-engine/internal/services"
	"github.com/hxuan190/swap-engine/internal/swap/trade"
	"github.com/hxuan190/swap-engine/internal/swap/txinfo"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

const (
	ENGINE_SERVICE = "swap-engine"

	DefaultSessionIdleTTL = 30 * time.Minute
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoAcceptedTrade    = errors.New("no accepted trade")
	ErrAcceptanceRequired = errors.New("trade changed and must be accepted")
	ErrNoFlow             = errors.New("no swap prepared")
	ErrInvalidSettings    = errors.New("invalid settings")
)

// TxPreparer builds transactions for an accepted trade. *txinfo.Dispatcher
// implements it.
type TxPreparer interface {
	GetSwapTxAndGasInfo(ctx context.Context, p txinfo.Params) (*domain.SwapTxAndGasInfo, error)
	AsyncBuilder(routing domain.Routing) (txinfo.AsyncBuilder, error)
}

type ApprovalSource interface {
	Check(ctx context.Context, account string, t domain.Trade) (domain.ApprovalTxInfo, error)
}

// SettingsStore persists per-account settings. *persistence.Storage implements it.
type SettingsStore interface {
	SaveSettings(settings persistence.Settings) error
	SaveSettingsBatch(all []persistence.Settings) error
	LoadAllSettings() (map[string]persistence.Settings, error)
	Close() error
}

type Options struct {
	Config    *config.SwapConfig
	Trades    *trade.Service
	TxInfo    TxPreparer
	Approvals ApprovalSource
	// Store may be nil, settings then live in memory only.
	Store          SettingsStore
	Clock          clock.Clock
	SessionIdleTTL time.Duration
}

type Engine struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	conf      *config.SwapConfig
	trades    *trade.Service
	txinfo    TxPreparer
	approvals ApprovalSource
	store     SettingsStore
	clock     clock.Clock
	chain     *evm.Client

	sessions *ttlcache.Cache[string, *Session]

	settingsMu sync.RWMutex
	settings   map[string]persistence.Settings
}

// New builds an engine from explicit collaborators. The DI container uses
// Configure instead.
func New(opts Options) *Engine {
	e := &Engine{}
	e.init(opts)
	return e
}

func (e *Engine) init(opts Options) {
	e.logger = services.NewServiceLogger(e)
	e.conf = opts.Config
	if e.conf == nil {
		e.conf = config.Defaults()
	}
	e.trades = opts.Trades
	e.txinfo = opts.TxInfo
	e.approvals = opts.Approvals
	e.store = opts.Store
	e.clock = opts.Clock
	if e.clock == nil {
		e.clock = clock.New()
	}
	ttl := opts.SessionIdleTTL
	if ttl <= 0 {
		ttl = DefaultSessionIdleTTL
	}
	e.sessions = ttlcache.New[string, *Session](ttlcache.WithTTL[string, *Session](ttl))
	e.sessions.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		item.Value().Close()
		metrics.ActiveSessions.Dec()
		if reason == ttlcache.EvictionReasonExpired {
			e.logger.Info().Str("session", item.Key()).Msg("[engine] idle session expired")
		}
	})
	e.settings = make(map[string]persistence.Settings)
}

func (e *Engine) ID() string {
	return ENGINE_SERVICE
}

func (e *Engine) Configure(c container.IContainer) error {
	swapConf := c.GetConfig(config.SWAP_CONFIG_KEY).(*config.SwapConfig)
	apiConf := c.GetConfig(config.TRADING_API_CONFIG_KEY).(*config.TradingAPIConfig)
	rpcConf := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	storageConf := c.GetConfig(config.STORAGE_CONFIG_KEY).(*config.StorageConfig)

	client := tradingapi.NewClient(tradingapi.ClientConfig{
		BaseURL:                apiConf.BaseURL,
		APIKey:                 apiConf.APIKey,
		Timeout:                apiConf.Timeout,
		UniversalRouterVersion: apiConf.UniversalRouterVersion,
	})
	trades := trade.NewService(tradingapi.NewRepository(client), trade.NewPollingPolicy(swapConf), swapConf.QuoteTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e.chain = evm.Dial(ctx, rpcConf.URLs)

	strategies, err := txinfo.NewGasStrategies(swapConf.ActiveGasStrategy, swapConf.ShadowGasStrategies)
	if err != nil {
		return errors.Wrap(err, "gas strategies")
	}
	gas := txinfo.NewGasService(strategies, e.chain)

	var signer txinfo.Signer
	if rpcConf.SignerPrivateKey != "" {
		local, err := evm.NewLocalSigner(rpcConf.SignerPrivateKey)
		if err != nil {
			return errors.Wrap(err, "signer")
		}
		signer = local
	}
	caps := txinfo.Capabilities{CanPresignPermit: swapConf.CanPresignPermit}

	var store SettingsStore
	if storageConf.PersistenceEnabled {
		s, err := persistence.NewStorage(storageConf.DBPath)
		if err != nil {
			return errors.Wrap(err, "settings storage")
		}
		store = s
	}

	e.init(Options{
		Config:    swapConf,
		Trades:    trades,
		TxInfo:    txinfo.NewDispatcher(txinfo.NewRoutingServicesMap(client, gas, signer, caps)),
		Approvals: txinfo.NewApprovalChecker(e.chain, client, gas),
		Store:     store,
	})
	return nil
}

func (e *Engine) Start() error {
	e.trades.Start()
	go e.sessions.Start()

	if e.store == nil {
		return nil
	}
	stored, err := e.store.LoadAllSettings()
	if err != nil {
		return errors.Wrap(err, "load settings")
	}
	e.settingsMu.Lock()
	for account, s := range stored {
		e.settings[account] = s
	}
	e.settingsMu.Unlock()
	e.logger.Info().Int("accounts", len(stored)).Msg("[engine] settings restored")
	return nil
}

func (e *Engine) Stop() error {
	e.sessions.DeleteAll()
	e.sessions.Stop()
	e.trades.Stop()
	if e.chain != nil {
		e.chain.Close()
	}
	if e.store == nil {
		return nil
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error().Err(err).Msg("[engine] failed to close settings storage")
		return err
	}
	return nil
}

func (e *Engine) Trades() *trade.Service { return e.trades }

// Quote fetches a definitive trade without a session.
func (e *Engine) Quote(ctx context.Context, args trade.UseTradeArgs) (trade.TradeResult, error) {
	return e.trades.GetTrade(ctx, e.withSettings(args))
}

func (e *Engine) IndicativeQuote(ctx context.Context, args trade.UseTradeArgs) (*domain.IndicativeTrade, error) {
	return e.trades.GetIndicativeTrade(ctx, e.withSettings(args))
}

// NewSession opens a swap session for account.
func (e *Engine) NewSession(account string) *Session {
	s := newSession(e, uuid.NewString(), account)
	e.sessions.Set(s.ID(), s, ttlcache.DefaultTTL)
	metrics.ActiveSessions.Inc()
	e.logger.Debug().Str("session", s.ID()).Str("account", account).Msg("[engine] session opened")
	return s
}

// Session looks up an open session and extends its idle deadline.
func (e *Engine) Session(id string) (*Session, error) {
	item := e.sessions.Get(id)
	if item == nil {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	return item.Value(), nil
}

func (e *Engine) CloseSession(id string) error {
	item := e.sessions.Get(id)
	if item == nil {
		return errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	e.sessions.Delete(id)
	item.Value().Close()
	return nil
}

func (e *Engine) SessionCount() int {
	return e.sessions.Len()
}

// Settings returns the stored settings for account or the defaults.
func (e *Engine) Settings(account string) persistence.Settings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	if s, ok := e.settings[strings.ToLower(account)]; ok {
		return s
	}
	return persistence.DefaultSettings(account)
}

func (e *Engine) PutSettings(s persistence.Settings) (persistence.Settings, error) {
	if err := s.Validate(); err != nil {
		return s, errors.Wrap(ErrInvalidSettings, err.Error())
	}
	s.UpdatedAt = e.clock.Now().UTC()
	if e.store != nil {
		if err := e.store.SaveSettings(s); err != nil {
			return s, errors.Wrap(err, "save settings")
		}
	}
	e.settingsMu.Lock()
	e.settings[strings.ToLower(s.Account)] = s
	e.settingsMu.Unlock()
	return s, nil
}

// ImportSettings validates every entry before writing any of them.
func (e *Engine) ImportSettings(all []persistence.Settings) error {
	now := e.clock.Now().UTC()
	for i := range all {
		if err := all[i].Validate(); err != nil {
			return errors.Wrapf(ErrInvalidSettings, "entry %d: %s", i, err)
		}
		all[i].UpdatedAt = now
	}
	if e.store != nil {
		if err := e.store.SaveSettingsBatch(all); err != nil {
			return errors.Wrap(err, "save settings batch")
		}
	}
	e.settingsMu.Lock()
	for _, s := range all {
		e.settings[strings.ToLower(s.Account)] = s
	}
	e.settingsMu.Unlock()
	return nil
}

// withSettings fills what args leave unset from the account's settings.
func (e *Engine) withSettings(args trade.UseTradeArgs) trade.UseTradeArgs {
	if args.Account == "" {
		return args
	}
	s := e.Settings(args.Account)
	if args.CustomSlippage == nil && s.CustomSlippage != nil {
		v := *s.CustomSlippage
		args.CustomSlippage = &v
	}
	if args.RoutingPreference == "" {
		args.RoutingPreference = s.RoutingPreference
	}
	if args.Protocols == nil && len(s.Protocols) > 0 {
		args.Protocols = append([]string(nil), s.Protocols...)
	}
	return args
}
