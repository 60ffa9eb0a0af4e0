package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Brand    string  `json:"brand"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Rate     float64 `json:"rate"`
}

func writeFile(t testing.TB, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "kontomanager.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, name, `{
		// shared settings
		brand: "yesss",
		username: "0681",
		rate: 2,
	}`)
	writeFile(t, filepath.Join(dir, "kontomanager.local.json5"), `{password: "secret", username: "0660"}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Brand: "yesss", Username: "0660", Password: "secret", Rate: 2}, cfg)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "kontomanager.json5")

	cfg, err := Resolve(name, testConfig{Brand: "yesss", Rate: 1}, testConfig{Password: "from-env"})
	require.NoError(t, err)
	require.Equal(t, testConfig{Brand: "yesss", Password: "from-env", Rate: 1}, cfg)

	writeFile(t, name, `{brand: "georg", username: "0681", password: "file"}`)
	cfg, err = Resolve(name, testConfig{Brand: "yesss", Rate: 1}, testConfig{Password: "from-env"})
	require.NoError(t, err)
	require.Equal(t, testConfig{Brand: "georg", Username: "0681", Password: "from-env", Rate: 1}, cfg)

	writeFile(t, name, `{brand: `)
	_, err = Resolve(name, testConfig{}, testConfig{})
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEST_KONTOMANAGER_BRAND", "xoxo")
	t.Setenv("TEST_KONTOMANAGER_USERNAME", "")

	cfg := EnvOverrides(map[string]func(*testConfig, string){
		"TEST_KONTOMANAGER_BRAND":    func(c *testConfig, v string) { c.Brand = v },
		"TEST_KONTOMANAGER_USERNAME": func(c *testConfig, v string) { c.Username = v },
		"TEST_KONTOMANAGER_UNSET":    func(c *testConfig, v string) { c.Password = v },
	})
	require.Equal(t, testConfig{Brand: "xoxo"}, cfg)
}
