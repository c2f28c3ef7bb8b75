package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("drama-test")
	require.NoError(t, err)

	assert.Equal(t, "drama-test", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "access_token", cfg.API.KeyName)
	assert.Equal(t, "drama", cfg.Mongo.Database)
	assert.Equal(t, "default", cfg.Actor.QueueName)
	assert.Equal(t, int64(3600000*7), cfg.Actor.TimeLimit)
	// MinIO endpoints default to plain HTTP, as local deployments expect.
	assert.False(t, cfg.MinIO.UseSSL)
}

func TestLoadActorOverride(t *testing.T) {
	t.Setenv("DEFAULT_ACTOR_OPTS", `{"queue_name":"gpu","max_retries":2,"time_limit":1000,"notify_shutdown":false}`)

	cfg, err := Load("drama-test")
	require.NoError(t, err)
	assert.Equal(t, "gpu", cfg.Actor.QueueName)
	assert.Equal(t, 2, cfg.Actor.MaxRetries)
	assert.Equal(t, int64(1000), cfg.Actor.TimeLimit)
}

func TestValidateRejectsBadSecretsKey(t *testing.T) {
	t.Setenv("SECRETS_SK_KEY", "not-base64!!!")

	_, err := Load("drama-test")
	assert.Error(t, err)
}
