package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_Defaults(t *testing.T) {
	cfg := Config{}
	initApp(&cfg)
	initPublishing(&cfg)

	require.NotZero(t, cfg.App.Port)
	assert.Equal(t, 10, cfg.Publishing.MetadataTimeoutSeconds)
	assert.Equal(t, 30, cfg.Publishing.PublishTimeoutSeconds)
	assert.Equal(t, 60, cfg.Publishing.MediaTimeoutSeconds)
	assert.Len(t, cfg.Publishing.Platforms, 6)
	assert.Equal(t, "@every 1m", cfg.Scheduler.Spec)
	assert.Equal(t, 50, cfg.Scheduler.BatchSize)
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("SP_TEST_VALUE", "")
	assert.Equal(t, "fallback", getConfigValue("", "SP_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", getConfigValue("YOUR_CLIENT_ID", "SP_TEST_VALUE", "fallback"))
	assert.Equal(t, "configured", getConfigValue("configured", "SP_TEST_VALUE", "fallback"))

	t.Setenv("SP_TEST_VALUE", "from-env")
	assert.Equal(t, "from-env", getConfigValue("configured", "SP_TEST_VALUE", "fallback"))
}

func TestParseKeyList(t *testing.T) {
	keys, first := parseKeyList("v2:new-secret, v1:old-secret,broken, :empty")
	assert.Equal(t, "v2", first)
	assert.Equal(t, map[string]string{"v2": "new-secret", "v1": "old-secret"}, keys)
}

func TestGetOAuthClient_InstagramFallsBackToFacebookApp(t *testing.T) {
	saved := C
	t.Cleanup(func() { C = saved })

	C.App.PublicBaseURL = "https://api.example.com"
	C.OAuth.Facebook = OAuthClient{ClientID: "fb-id", ClientSecret: "fb-secret"}
	C.OAuth.Instagram = OAuthClient{}
	t.Setenv("INSTAGRAM_CLIENT_ID", "")
	t.Setenv("INSTAGRAM_CLIENT_SECRET", "")
	t.Setenv("INSTAGRAM_REDIRECT_URI", "")

	got := GetOAuthClient("instagram")
	assert.Equal(t, "fb-id", got.ClientID)
	assert.Equal(t, "fb-secret", got.ClientSecret)
	assert.Equal(t, "https://api.example.com/auth/instagram/callback", got.RedirectURI)
	assert.Contains(t, got.Scopes, "instagram_content_publish")
}

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	content := "# comment\nSP_ENV_A=alpha\nexport SP_ENV_B=\"beta\"\nnot-a-pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	os.Unsetenv("SP_ENV_A")
	os.Unsetenv("SP_ENV_B")
	t.Cleanup(func() {
		os.Unsetenv("SP_ENV_A")
		os.Unsetenv("SP_ENV_B")
	})

	LoadEnvFromFile(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "alpha", os.Getenv("SP_ENV_A"))
	assert.Equal(t, "beta", os.Getenv("SP_ENV_B"))
}
