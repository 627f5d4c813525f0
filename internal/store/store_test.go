package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse db url")
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.EqualError(t, s.HealthCheck(context.Background()), "store not initialized")
	assert.NotPanics(t, s.Close)
	assert.NotPanics(t, s.LogStats)
}
