package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/energydesk/config"
)

func TestRunReturnsStartupErrorsAfterCleanup(t *testing.T) {
	cfg := &config.Config{
		AppName:         "energydesk",
		Environment:     "development",
		ServerPort:      "0",
		DBDriver:        "sqlite",
		DBDSN:           "file:run_startup?mode=memory&cache=shared",
		JWTPublicKey:    "not a pem block",
		LogLevel:        "error",
		ShutdownTimeout: time.Second,
	}

	err := run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token verification")

	_, err = config.OpenStore(context.Background(), cfg)
	assert.Error(t, err, "run closed the store on its way out")
}
