package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "climatescope",
		Password: "secret",
		Database: "observations",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=climatescope password=secret dbname=observations sslmode=require",
		cfg.DSN())
}
