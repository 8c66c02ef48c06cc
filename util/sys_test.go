package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "贵州茅台_20230101_20230110.csv", FileName("csv", "贵州茅台", "20230101", "20230110"))
	assert.Equal(t, "ST_A_B_candlestick.png", FileName(".png", "ST A/B", "", "candlestick"))
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "out/a.png", ReplaceExt("out/a.html", "png"))
	assert.Equal(t, "a.html", ReplaceExt("a", ".html"))
}

func TestMkDirAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, MkDirAll(dir, 0755, 2))
	fi, e := os.Stat(dir)
	require.NoError(t, e)
	assert.True(t, fi.IsDir())
	assert.NoError(t, MkDirAll("", 0755, 1))
}

func TestPlatform(t *testing.T) {
	p := Platform()
	assert.NotEmpty(t, p.OS)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"20230110", "2023-01-10", "2023/01/10", " 20230110 "} {
		d, e := ParseDate(s)
		require.NoError(t, e, s)
		assert.Equal(t, want, d)
	}
	_, e := ParseDate("10.01.2023")
	assert.Error(t, e)
}

func TestNewHTTPClient(t *testing.T) {
	c, e := NewHTTPClient("", time.Second)
	require.NoError(t, e)
	assert.Equal(t, time.Second, c.Timeout)

	c, e = NewHTTPClient("socks5://127.0.0.1:1080", time.Second)
	require.NoError(t, e)
	assert.NotNil(t, c.Transport)

	c, e = NewHTTPClient("http://127.0.0.1:8118", time.Second)
	require.NoError(t, e)
	assert.NotNil(t, c.Transport)

	_, e = NewHTTPClient("ftp://127.0.0.1:21", time.Second)
	assert.Error(t, e)
}

func TestCheckErrNop(t *testing.T) {
	assert.False(t, CheckErrNop(nil, "nothing"))
	assert.True(t, CheckErrNop(errors.New("boom"), "upload skipped"))
}
