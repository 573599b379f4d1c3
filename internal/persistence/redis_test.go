package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
)

func TestRedisPing(t *testing.T) {
	srv := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: srv.Addr()}, zap.NewNop())
	t.Cleanup(r.Close)

	require.NoError(t, r.Ping(context.Background()))

	srv.Close()
	require.Error(t, r.Ping(context.Background()))
}

func TestNilHandlesReportNotConfigured(t *testing.T) {
	var r *Redis
	require.Error(t, r.Ping(context.Background()))

	var p *Postgres
	require.Error(t, p.Ping(context.Background()))
	require.Nil(t, p.PoolHandle())
}
