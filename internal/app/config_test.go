package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[server]
port = ":9999"

[auth]
redis_url = "redis://localhost:6379/0"
site_admins = [2]

[api]
user_id_header = "X-Moodle-User-Id"

[database]
dsn = ":memory:"
`

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig("test.toml", []byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9999", config.Server.Port)
	assert.Equal(t, "X-Moodle-Lang", config.API.LangHeader)
	assert.Equal(t, "auth:{user}", config.Auth.TokenKeyTemplate)
	assert.Equal(t, 24*time.Hour, config.SessionTTL())
	assert.Equal(t, 30*time.Second, config.WSTimeout())
	assert.Equal(t, 30*time.Minute, config.TaskTimeout())
	assert.Equal(t, "en", config.Display.DefaultLang)
	assert.True(t, config.IsSiteAdmin(2))
	assert.False(t, config.IsSiteAdmin(3))

	grants, err := config.RoleGrants()
	require.NoError(t, err)
	assert.Nil(t, grants)
}

func TestParseConfigFull(t *testing.T) {
	data := minimalConfig + `
[moodle]
wwwroot = "https://lms.example"
ws_url = "https://lms.example"
ws_token = "secret"
ws_timeout = "5s"

[enrol]
auto_enrol = true
hide_enrolled = true
fallback_role_id = 7

[capabilities.grants]
5 = ["mod/subcourse:view"]
9 = ["*"]

[display]
timestamp_format = "02/01/2006 15:04"
`
	config, err := ParseConfig("test.toml", []byte(data))
	require.NoError(t, err)

	grants, err := config.RoleGrants()
	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{5: {"mod/subcourse:view"}, 9: {"*"}}, grants)

	mc := config.ModuleConfig()
	assert.Equal(t, "https://lms.example", mc.WWWRoot)
	assert.True(t, mc.AutoEnrol)
	assert.True(t, mc.HideEnrolled)
	assert.False(t, mc.AutoUnhide)
	assert.Equal(t, int64(7), mc.FallbackRoleID)
	assert.Equal(t, "02/01/2006 15:04", mc.TimestampFormat)
	assert.Equal(t, 5*time.Second, config.WSTimeout())
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"broken toml", "[server\nport = 1"},
		{"missing port", `
[auth]
redis_url = "redis://localhost"
[api]
user_id_header = "X-User"
[database]
dsn = ":memory:"
`},
		{"ws url without token", minimalConfig + `
[moodle]
ws_url = "https://lms.example"
`},
		{"bad duration", minimalConfig + `
[tasks]
timeout = "soon"
`},
		{"bad role id", minimalConfig + `
[capabilities.grants]
student = ["*"]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("test.toml", []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseType(t *testing.T) {
	assert.Equal(t, "postgres", string(DatabaseType("postgres://u:p@localhost/db")))
	assert.Equal(t, "sqlite", string(DatabaseType("file:subcourse.db")))
}
