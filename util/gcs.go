package util

import (
	"bufio"
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/ssgreg/repeat"
)

//GCSClient may serve as a handy wrapper for google cloud storage client.
//Initialization is performed lazily on first use, and is thread-safe.
//Get the GCSClient via NewGCSClient function.
type GCSClient struct {
	init                          sync.Once
	c                             *storage.Client
	bucket, prefix                string
	proxy                         string
	timeout                       time.Duration
	origHTTPProxy, origHTTPsProxy string
}

//NewGCSClient creates a client uploading to bucket under the object prefix.
//proxy is applied through environment variables when not empty.
func NewGCSClient(bucket, prefix, proxy string, timeout time.Duration) *GCSClient {
	return &GCSClient{
		bucket:  bucket,
		prefix:  prefix,
		proxy:   proxy,
		timeout: timeout,
	}
}

//Get returns the storage.Client within this holder.
//may perform initialization for the first call.
func (g *GCSClient) Get(ctx context.Context) (c *storage.Client, e error) {
	g.init.Do(func() {
		if g.proxy != "" {
			// gcs api doesn't support proxy setting very well for now,
			// setting the environment variables as a workaround
			if v, ok := os.LookupEnv("http_proxy"); ok {
				g.origHTTPProxy = v
			}
			if v, ok := os.LookupEnv("https_proxy"); ok {
				g.origHTTPsProxy = v
			}
			if e = os.Setenv("http_proxy", g.proxy); e != nil {
				return
			}
			if e = os.Setenv("https_proxy", g.proxy); e != nil {
				return
			}
		}
		c, e = storage.NewClient(ctx)
		if e != nil {
			return
		}
		g.c = c
	})
	if e == nil && g.c == nil {
		e = errors.New("gcs client is not initialized")
	}
	return g.c, e
}

//ObjectName maps a local file to the destination object name.
func (g *GCSClient) ObjectName(localFile string) string {
	return path.Join(g.prefix, filepath.Base(localFile))
}

//Upload copies localFile to the bucket, retrying on transient failures.
//It returns the destination object name.
func (g *GCSClient) Upload(ctx context.Context, localFile string, retry int) (dest string, e error) {
	dest = g.ObjectName(localFile)
	op := func(c int) error {
		log.Debugf("#%d uploading %s to gs://%s/%s", c, localFile, g.bucket, dest)
		client, err := g.Get(ctx)
		if err != nil {
			return repeat.HintStop(errors.Wrap(err, "failed to create gcs client"))
		}
		file, err := os.Open(localFile)
		if err != nil {
			return repeat.HintStop(errors.WithStack(err))
		}
		defer file.Close()
		tctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		wc := client.Bucket(g.bucket).Object(dest).NewWriter(tctx)
		if ct := mime.TypeByExtension(filepath.Ext(localFile)); ct != "" {
			wc.ContentType = ct
		}
		if _, err := bufio.NewReader(file).WriteTo(wc); err != nil {
			wc.Close()
			log.Warnf("failed to upload %s: %+v", localFile, err)
			return repeat.HintTemporary(err)
		}
		if err := wc.Close(); err != nil {
			log.Warnf("failed to upload %s: %+v", localFile, err)
			return repeat.HintTemporary(err)
		}
		return nil
	}
	e = repeat.Repeat(
		repeat.FnWithCounter(op),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(retry),
		repeat.WithDelay(
			repeat.FullJitterBackoff(500*time.Millisecond).WithMaxDelay(15*time.Second).Set(),
		),
	)
	if e != nil {
		return dest, errors.Wrapf(e, "failed to upload %s", localFile)
	}
	log.Printf("%s uploaded to gs://%s/%s", localFile, g.bucket, dest)
	return dest, nil
}

//Close restores proxy environment variables and releases the underlying client.
func (g *GCSClient) Close() (e error) {
	if g.proxy != "" {
		if e = restoreEnv("http_proxy", g.origHTTPProxy); e != nil {
			return
		}
		if e = restoreEnv("https_proxy", g.origHTTPsProxy); e != nil {
			return
		}
	}
	if g.c == nil {
		return nil
	}
	return g.c.Close()
}

func restoreEnv(key, orig string) error {
	if orig == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, orig)
}
