package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAppliesDefaults(t *testing.T) {
	loaded, err := Resolve(FileConfig{Broker: BrokerConfig{ID: "JVEE"}})
	require.NoError(t, err)

	assert.Equal(t, "JVEE", loaded.BrokerID)
	assert.Equal(t, int64(defaultMinQuantity), loaded.MinQuantity)
	assert.Equal(t, defaultWorkers, loaded.Workers)
	assert.Equal(t, defaultInboundCapacity, loaded.InboundCapacity)
	assert.Equal(t, defaultDoneForDayCron, loaded.DoneForDayCron)
	assert.Nil(t, loaded.Postgres)
}

func TestResolveRejectsBadBrokerID(t *testing.T) {
	_, err := Resolve(FileConfig{Broker: BrokerConfig{ID: "JV-EE"}})
	require.Error(t, err)

	_, err = Resolve(FileConfig{})
	require.Error(t, err)
}

func TestResolveSeeds(t *testing.T) {
	loaded, err := Resolve(FileConfig{
		Broker: BrokerConfig{ID: "JVEE"},
		Seed: SeedConfig{
			Accounts:    []SeedAccount{{ID: 1, Name: "acct", Cash: "10000.00", Currency: "USD"}},
			Instruments: []SeedInstrument{{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}},
			Prices:      []SeedPrice{{Symbol: "AAPL", Price: "20.00"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, "10000.00 USD", loaded.Accounts[0].Cash.String())
	require.Len(t, loaded.Instruments, 1)
	require.Len(t, loaded.Prices, 1)
	// omitted currency falls back to the default
	assert.Equal(t, "20.00 USD", loaded.Prices[0].Price.String())
}

func TestResolveRejectsBadSeeds(t *testing.T) {
	_, err := Resolve(FileConfig{
		Broker: BrokerConfig{ID: "JVEE"},
		Seed:   SeedConfig{Accounts: []SeedAccount{{ID: 0, Name: "acct"}}},
	})
	require.Error(t, err)

	_, err = Resolve(FileConfig{
		Broker: BrokerConfig{ID: "JVEE"},
		Seed:   SeedConfig{Prices: []SeedPrice{{Symbol: "AAPL", Price: "cheap"}}},
	})
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"broker": {"id": "JVEE", "minQuantity": 5, "workers": 2},
		"queue": {"inboundCapacity": 64, "outboundCapacity": 16},
		"feed": {"url": "wss://exchange.test/ws", "symbols": ["AAPL"]},
		"postgres": {"host": "db.test", "port": 5432, "database": "oms"}
	}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), loaded.MinQuantity)
	assert.Equal(t, 2, loaded.Workers)
	assert.Equal(t, 64, loaded.InboundCapacity)
	assert.Equal(t, 16, loaded.OutboundCapacity)
	assert.Equal(t, "wss://exchange.test/ws", loaded.FeedURL)
	require.NotNil(t, loaded.Postgres)
	assert.Equal(t, "db.test", loaded.Postgres.Host)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
