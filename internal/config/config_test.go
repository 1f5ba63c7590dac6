package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultFillsSaneValues(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Cache.Kind)
	require.Equal(t, "15m", cfg.JWT.AccessTTL)
	require.Equal(t, "336h", cfg.Session.TTL)
	require.Equal(t, "mk_access", cfg.Session.AccessCookieName)
	require.Equal(t, "mk_refresh", cfg.Session.CookieName)
	require.Equal(t, 6, cfg.Otp.CodeLength)
	require.Equal(t, 5, cfg.Otp.MaxAttempts)
	require.Equal(t, "auto", cfg.SMTP.TLS)
}

func TestLoadYAMLAndDefaults(t *testing.T) {
	path := writeYAML(t, `
app:
  env: staging
server:
  addr: ":9090"
jwt:
  issuer: mercadito
  secret: cambiame
session:
  ttl: 24h
otp:
  max_attempts: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "staging", cfg.App.Env)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "24h", cfg.Session.TTL)
	require.Equal(t, 3, cfg.Otp.MaxAttempts)
	// lo no declarado cae a defaults
	require.Equal(t, "15m", cfg.JWT.AccessTTL)
	require.Equal(t, "10m", cfg.Otp.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-existe.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("JWT_SECRET", "del-entorno")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeYAML(t, `
server:
  addr: ":9090"
jwt:
  secret: del-yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "del-entorno", cfg.JWT.Secret)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestInvalidDurationRejected(t *testing.T) {
	path := writeYAML(t, `
session:
  ttl: catorce-dias
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duración inválida")
}

func TestProdRequiresJWTSecret(t *testing.T) {
	path := writeYAML(t, `
app:
  env: prod
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "jwt.secret")

	// con secret presente, prod carga
	path = writeYAML(t, `
app:
  env: prod
jwt:
  secret: algo-largo-y-secreto
`)
	_, err = Load(path)
	require.NoError(t, err)
}

func TestDur(t *testing.T) {
	require.Equal(t, int64(0), int64(Dur("basura")))
	require.Equal(t, int64(60_000_000_000), int64(Dur("1m")))
}
