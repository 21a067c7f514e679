package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnConfig(t *testing.T) {
	cfg, err := connConfig("host=db.internal port=5431 user=workhub_user password=secret dbname=workhub_db sslmode=disable")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, uint16(5431), cfg.Port)
	assert.Equal(t, "workhub_user", cfg.User)
	assert.Equal(t, "workhub_db", cfg.Database)
	assert.Equal(t, "workhub", cfg.RuntimeParams["application_name"])
	assert.Equal(t, "UTC", cfg.RuntimeParams["timezone"])
}

func TestConnConfig_BadDSN(t *testing.T) {
	_, err := connConfig("port=not-a-number")
	assert.Error(t, err)
}
