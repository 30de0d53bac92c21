package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user01samiul/jx-backend-sub008/internal/config"
)

func TestNewServer(t *testing.T) {
	t.Parallel()

	cfg := config.HTTPConfig{
		Port:              9090,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       time.Minute,
		MaxHeaderBytes:    4096,
	}
	h := http.NewServeMux()

	srv := NewServer(cfg, h)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Same(t, h, srv.Handler)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 20*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
	assert.Equal(t, 4096, srv.MaxHeaderBytes)
}
