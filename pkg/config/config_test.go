package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "HYBRID", cfg.Scheduler.DefaultStrategy)
	assert.Equal(t, 50000, cfg.Scheduler.MaxBacktrackNodes)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.Timeout)
	assert.Equal(t, ExportBackendLocal, cfg.Exports.Backend)
	assert.Equal(t, "exam-scheduling.events", cfg.Events.Channel)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_DEFAULT_STRATEGY", "simulated_annealing")
	v.Set("OPTIMIZER_TIMEOUT", "not-a-duration")
	v.Set("UPSTREAM_BASE_URL", "http://data.local/")
	v.Set("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg := fromViper(v)

	assert.Equal(t, "SIMULATED_ANNEALING", cfg.Scheduler.DefaultStrategy)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.Timeout)
	assert.Equal(t, "http://data.local", cfg.Upstream.BaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
