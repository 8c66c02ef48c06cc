package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carusyte/stockchart/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	saved := Args
	defer func() { Args = saved }()
	setDefaults()

	path := filepath.Join(t.TempDir(), "stockchart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
tushare:
  token: from-file
retry:
  max_tries: 3
  base_delay: 500ms
  max_delay: 10s
chart:
  type: line
`), 0644))
	t.Setenv("TUSHARE_TOKEN", "from-env")

	require.NoError(t, Load(path))
	assert.Equal(t, "debug", Args.LogLevel)
	assert.Equal(t, "from-env", Args.Tushare.Token)
	assert.Equal(t, 3, Args.Retry.MaxTries)
	assert.Equal(t, 500*time.Millisecond, Args.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, Args.Retry.MaxDelay)
	assert.Equal(t, string(model.LINE), Args.Chart.Type)
	// untouched defaults survive
	assert.Equal(t, "stock_data", Args.Output.DataDir)
	assert.Equal(t, []string{TushareURL, TushareAltURL}, Args.Tushare.URLs)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	saved := Args
	defer func() { Args = saved }()
	assert.Error(t, Load(filepath.Join(t.TempDir(), "none.yaml")))
}

func TestCheckConfig(t *testing.T) {
	saved := Args
	defer func() { Args = saved }()

	setDefaults()
	assert.NoError(t, checkConfig())

	Args.Retry.MaxTries = 0
	assert.Error(t, checkConfig())

	setDefaults()
	Args.Retry.MaxDelay = time.Millisecond
	assert.Error(t, checkConfig())

	setDefaults()
	Args.Chart.Type = "pie"
	assert.Error(t, checkConfig())

	for _, ct := range []string{"candlestick", "OHLC", " line "} {
		setDefaults()
		Args.Chart.Type = ct
		assert.NoError(t, checkConfig(), ct)
	}
}
