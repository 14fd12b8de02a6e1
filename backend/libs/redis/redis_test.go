package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewRedisClient(Options{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, srv.Addr(), client.Options().Addr)
}

func TestNewRedisClientValidation(t *testing.T) {
	_, err := NewRedisClient(Options{Addr: "  "})
	assert.Error(t, err)

	_, err = NewRedisClient(Options{Addr: "localhost:6379", DB: -1})
	assert.Error(t, err)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	addr := srv.Addr()
	srv.Close()

	_, err = NewRedisClient(Options{Addr: addr})
	assert.Error(t, err)
}
