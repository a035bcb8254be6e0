package ops

import (
	"encoding/json"
	"os"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/codec"
	"main/internal/model"
	"main/pkg/conn"
)

const (
	defaultWorkers         = 4
	defaultInboundCapacity = 1024
	defaultMinQuantity     = 1
	defaultDoneForDayCron  = "0 0 17 * * MON-FRI"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Broker   BrokerConfig   `json:"broker"`
	Queue    QueueConfig    `json:"queue"`
	Feed     FeedConfig     `json:"feed"`
	Schedule ScheduleConfig `json:"schedule"`
	Postgres PostgresConfig `json:"postgres"`
	Profile  ProfileConfig  `json:"profile"`
	Seed     SeedConfig     `json:"seed"`
}

// BrokerConfig identifies this broker on the exchange protocol.
type BrokerConfig struct {
	ID          string `json:"id"`
	MinQuantity int64  `json:"minQuantity"`
	Workers     int    `json:"workers"`
}

// QueueConfig sizes the message queues.
type QueueConfig struct {
	InboundCapacity  int `json:"inboundCapacity"`
	OutboundCapacity int `json:"outboundCapacity"`
}

// FeedConfig points at the exchange websocket endpoint.
type FeedConfig struct {
	URL     string   `json:"url"`
	Symbols []string `json:"symbols"`
}

// ScheduleConfig holds cron expressions, seconds field first.
type ScheduleConfig struct {
	DoneForDay string `json:"doneForDay"`
}

// PostgresConfig describes the database connection. An empty host means
// run on the in-memory stores.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// ProfileConfig enables continuous profiling when an address is set.
type ProfileConfig struct {
	ServerAddress string `json:"serverAddress"`
}

// SeedConfig holds bootstrap data for the in-memory stores.
type SeedConfig struct {
	Accounts    []SeedAccount    `json:"accounts"`
	Instruments []SeedInstrument `json:"instruments"`
	Prices      []SeedPrice      `json:"prices"`
}

// SeedAccount describes a bootstrap account.
type SeedAccount struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Cash     string `json:"cash"`
	Currency string `json:"currency"`
}

// SeedInstrument describes a bootstrap instrument.
type SeedInstrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// SeedPrice describes a bootstrap quote.
type SeedPrice struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	BrokerID         string
	MinQuantity      int64
	Workers          int
	InboundCapacity  int
	OutboundCapacity int
	FeedURL          string
	FeedSymbols      []string
	DoneForDayCron   string
	Postgres         *conn.Option
	ProfileAddress   string
	Accounts         []model.Account
	Instruments      []model.Instrument
	Prices           []model.MarketPrice
}

// Load reads a JSON config file and resolves it with defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config")
	}
	return Resolve(cfg)
}

// Resolve validates a parsed config and fills defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	if err := codec.ValidateBrokerID(cfg.Broker.ID); err != nil {
		return Loaded{}, errors.Wrap(err, "broker id")
	}

	loaded := Loaded{
		BrokerID:         cfg.Broker.ID,
		MinQuantity:      cfg.Broker.MinQuantity,
		Workers:          cfg.Broker.Workers,
		InboundCapacity:  cfg.Queue.InboundCapacity,
		OutboundCapacity: cfg.Queue.OutboundCapacity,
		FeedURL:          cfg.Feed.URL,
		FeedSymbols:      cfg.Feed.Symbols,
		DoneForDayCron:   cfg.Schedule.DoneForDay,
		ProfileAddress:   cfg.Profile.ServerAddress,
	}
	if loaded.MinQuantity <= 0 {
		loaded.MinQuantity = defaultMinQuantity
	}
	if loaded.Workers <= 0 {
		loaded.Workers = defaultWorkers
	}
	if loaded.InboundCapacity <= 0 {
		loaded.InboundCapacity = defaultInboundCapacity
	}
	if loaded.OutboundCapacity <= 0 {
		loaded.OutboundCapacity = defaultInboundCapacity
	}
	if loaded.DoneForDayCron == "" {
		loaded.DoneForDayCron = defaultDoneForDayCron
	}

	if cfg.Postgres.Host != "" {
		loaded.Postgres = &conn.Option{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}
	}

	var err error
	if loaded.Accounts, err = resolveAccounts(cfg.Seed.Accounts); err != nil {
		return Loaded{}, err
	}
	if loaded.Instruments, err = resolveInstruments(cfg.Seed.Instruments); err != nil {
		return Loaded{}, err
	}
	if loaded.Prices, err = resolvePrices(cfg.Seed.Prices); err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}

func resolveAccounts(seeds []SeedAccount) ([]model.Account, error) {
	out := make([]model.Account, 0, len(seeds))
	for _, seed := range seeds {
		if seed.ID <= 0 || seed.Name == "" {
			return nil, errors.Errorf("invalid seed account %+v", seed)
		}
		cash, err := parseMoney(seed.Cash, seed.Currency)
		if err != nil {
			return nil, errors.Wrap(err, "seed account cash").With("accountId", seed.ID)
		}
		out = append(out, model.Account{ID: seed.ID, Name: seed.Name, Cash: cash})
	}
	return out, nil
}

func resolveInstruments(seeds []SeedInstrument) ([]model.Instrument, error) {
	out := make([]model.Instrument, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Symbol == "" {
			return nil, errors.Errorf("invalid seed instrument %+v", seed)
		}
		out = append(out, model.Instrument{
			Symbol:   seed.Symbol,
			Name:     seed.Name,
			Exchange: seed.Exchange,
		})
	}
	return out, nil
}

func resolvePrices(seeds []SeedPrice) ([]model.MarketPrice, error) {
	out := make([]model.MarketPrice, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Symbol == "" {
			return nil, errors.Errorf("invalid seed price %+v", seed)
		}
		price, err := parseMoney(seed.Price, seed.Currency)
		if err != nil {
			return nil, errors.Wrap(err, "seed price").With("symbol", seed.Symbol)
		}
		out = append(out, model.MarketPrice{Symbol: seed.Symbol, Price: price})
	}
	return out, nil
}

func parseMoney(amount, currency string) (model.Money, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Money{}, err
	}
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return model.NewMoney(value, currency), nil
}
