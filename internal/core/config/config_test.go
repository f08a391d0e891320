package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "nope.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, "en-US", cfg.Locale)
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, "random", cfg.Room.Name)
	assert.Equal(t, TransportJSONFile, cfg.Transport.Kind)
	assert.Equal(t, 2*time.Second, cfg.Transport.JSONFile.PollInterval)
	assert.Equal(t, filepath.Join(dataDir, "rooms"), cfg.RoomsDir())
	assert.Equal(t, "Chat Room #random", cfg.RoomTitle())
	assert.Equal(t, dataDir, cfg.DataDir)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
viewer: alice@example.com
locale: ja-JP
timezone: Asia/Tokyo
room:
  name: general
  title: General
transport:
  kind: redis
  redis:
    addr: redis:6379
    db: 2
  jsonfile:
    poll_interval: 500ms
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", cfg.Viewer)
	assert.Equal(t, "ja-JP", cfg.Locale)
	assert.Equal(t, "general", cfg.Room.Name)
	assert.Equal(t, "General", cfg.RoomTitle())
	assert.Equal(t, TransportRedis, cfg.Transport.Kind)
	assert.Equal(t, "redis:6379", cfg.Transport.Redis.Addr)
	assert.Equal(t, 2, cfg.Transport.Redis.DB)
	assert.Equal(t, "huddle", cfg.Transport.Redis.Prefix, "unset prefix gets default")
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.JSONFile.PollInterval)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "room: [unterminated")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
room:
  name: "../escape"
transport:
  kind: carrier-pigeon
`)

	_, err := Load(path, t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "room.name", fieldErrs[0].Field)
	assert.Equal(t, "transport.kind", fieldErrs[1].Field)
}

func TestLoad_RedisPasswordFromEnv(t *testing.T) {
	t.Setenv("HUDDLE_REDIS_PASSWORD", "s3cret")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Transport.Redis.Password)
}

func TestConfig_Location(t *testing.T) {
	cfg := DefaultConfig()

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "Mars/Olympus_Mons"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestConfig_RoomsDirOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	assert.Equal(t, "/data/rooms", cfg.RoomsDir())

	cfg.Transport.JSONFile.Dir = "/srv/rooms"
	assert.Equal(t, "/srv/rooms", cfg.RoomsDir())
}
