package global

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/carusyte/stockchart/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutput(t *testing.T) {
	assert.Equal(t, os.Stdout, Log.Out)

	saved := conf.Args
	defer func() {
		conf.Args = saved
		require.NoError(t, Setup())
	}()

	path := filepath.Join(t.TempDir(), "stockchart.log")
	conf.Args.LogLevel = "info"
	conf.Args.LogFile = path
	require.NoError(t, Setup())
	Log.Info("to file")
	assert.NotEqual(t, os.Stdout, Log.Out)

	conf.Args.LogFile = ""
	require.NoError(t, Setup())
	assert.Equal(t, os.Stdout, Log.Out)

	b, e := os.ReadFile(path)
	require.NoError(t, e)
	assert.Contains(t, string(b), "to file")
}

func TestSetLevel(t *testing.T) {
	lvl := Log.GetLevel()
	defer Log.SetLevel(lvl)
	SetLevel("debug")
	assert.Equal(t, "debug", Log.GetLevel().String())
	SetLevel("bogus")
	assert.Equal(t, "debug", Log.GetLevel().String())
	SetLevel("warn")
	assert.Equal(t, "warning", Log.GetLevel().String())
}
