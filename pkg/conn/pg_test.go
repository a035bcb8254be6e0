package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionDSN(t *testing.T) {
	assert.Equal(t,
		"host=localhost port=5432 sslmode=disable",
		Option{}.dsn(),
	)
	assert.Equal(t,
		"host=db.internal port=6432 sslmode=require user=oms password=secret dbname=orders",
		Option{
			Host:     "db.internal",
			Port:     6432,
			SSLMode:  "require",
			User:     "oms",
			Password: "secret",
			Database: "orders",
		}.dsn(),
	)
	assert.Equal(t,
		"postgres://oms@db.internal:5432/orders",
		Option{ConnString: "postgres://oms@db.internal:5432/orders", Host: "ignored"}.dsn(),
	)
}
