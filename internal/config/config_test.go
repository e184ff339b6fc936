package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("database.driver", "SQLite")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, time.Minute, cfg.AnswerRateLimitSpan)
	require.Equal(t, 30, cfg.AnswerRateLimitMax)
}

func TestFromViperRequiresSecret(t *testing.T) {
	v := viper.New()
	v.Set("database.driver", "postgres")

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestFromViperRejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("database.driver", "oracle")

	_, err := fromViper(v)
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestHTTPAddress(t *testing.T) {
	require.Equal(t, ":8080", Config{AppPort: "8080"}.HTTPAddress())
	require.Equal(t, ":9000", Config{AppPort: ":9000"}.HTTPAddress())
}
