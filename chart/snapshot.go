package chart

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

//Snapshot captures the rendered HTML chart at htmlPath into a PNG file using
//a headless Chrome. It requires a local Chrome installation.
func Snapshot(ctx context.Context, htmlPath, pngPath string, timeout time.Duration) error {
	abs, e := filepath.Abs(htmlPath)
	if e != nil {
		return errors.WithStack(e)
	}
	cctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	tctx, tcancel := context.WithTimeout(cctx, timeout)
	defer tcancel()

	var buf []byte
	e = chromedp.Run(tctx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitVisible("div.item", chromedp.ByQuery),
		// let the chart animation settle
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.Screenshot("body", &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if e != nil {
		return errors.Wrapf(e, "failed to take snapshot of %s", htmlPath)
	}
	if e = os.WriteFile(pngPath, buf, 0644); e != nil {
		return errors.Wrapf(e, "failed to write snapshot %s", pngPath)
	}
	log.Infof("chart snapshot saved to %s", pngPath)
	return nil
}
