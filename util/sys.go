package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/host"
	"github.com/ssgreg/repeat"
)

//PlatformInfo describes the operating system the process runs on.
type PlatformInfo struct {
	//OS is the GOOS style name, e.g. linux, darwin, windows.
	OS       string
	Platform string
	Version  string
}

//Platform detects the host operating system. It never fails, runtime.GOOS
//is used when the host query returns nothing useful.
func Platform() PlatformInfo {
	p := PlatformInfo{OS: runtime.GOOS}
	info, e := host.Info()
	if e != nil {
		log.Debugf("failed to query host info, using runtime os %s: %+v", p.OS, e)
		return p
	}
	if info.OS != "" {
		p.OS = strings.ToLower(info.OS)
	}
	p.Platform = info.Platform
	p.Version = info.PlatformVersion
	return p
}

//MkDirAll similar to os.MkdirAll, but with retry when failed.
func MkDirAll(path string, perm os.FileMode, retry int) (e error) {
	if path == "" || path == "." {
		return nil
	}
	op := func(c int) error {
		if e = os.MkdirAll(path, perm); e != nil {
			log.Debugf("#%d failed to create directory %s: %+v", c, path, e)
			return repeat.HintTemporary(e)
		}
		return nil
	}
	e = repeat.Repeat(
		repeat.FnWithCounter(op),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(retry),
		repeat.WithDelay(
			repeat.FullJitterBackoff(100*time.Millisecond).WithMaxDelay(2*time.Second).Set(),
		),
	)
	return errors.WithStack(e)
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

//FileName joins parts with underscores and appends ext, replacing characters
//that are not allowed in file names. Empty parts are skipped.
func FileName(ext string, parts ...string) string {
	ps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ps = append(ps, unsafeChars.Replace(p))
		}
	}
	name := strings.Join(ps, "_")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + ext
}

//ReplaceExt swaps the extension of path with ext.
func ReplaceExt(path, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
