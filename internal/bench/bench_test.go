package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPct(t *testing.T) {
	vs := []time.Duration{5, 1, 4, 2, 3}
	assert.Equal(t, time.Duration(3), Pct(vs, 0.5))
	assert.Equal(t, time.Duration(5), Pct(vs, 0.99))
	assert.Equal(t, time.Duration(1), Pct(vs, 0))
	assert.Zero(t, Pct(nil, 0.5))
	assert.Equal(t, []time.Duration{5, 1, 4, 2, 3}, vs, "input is not reordered")
}

func TestAvgAndEnvInt(t *testing.T) {
	assert.Equal(t, time.Duration(3), Avg([]time.Duration{2, 4}))
	assert.Zero(t, Avg(nil))

	t.Setenv("BENCH_N", "42")
	assert.Equal(t, 42, EnvInt("BENCH_N", 7))
	t.Setenv("BENCH_N", "-1")
	assert.Equal(t, 7, EnvInt("BENCH_N", 7))
	assert.Equal(t, 7, EnvInt("BENCH_MISSING", 7))
}
