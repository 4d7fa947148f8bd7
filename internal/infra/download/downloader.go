package download

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.VideoMaterializer = (*Downloader)(nil)

// Downloader materializes completed videos into a local directory. The
// remote bytes are opaque; nothing is inspected beyond streaming them to
// disk. On any failure the URL is handed to the notification sink instead,
// and the failure never reaches the caller.
type Downloader struct {
	client *http.Client
	dir    string
	sink   adapter.NotificationSink
	log    *zerolog.Logger
}

func NewDownloader(dir string, sink adapter.NotificationSink, logger *zerolog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 5 * time.Minute},
		dir:    dir,
		sink:   sink,
		log:    logger,
	}
}

func (d *Downloader) Save(ctx context.Context, url, filename string) {
	if err := d.fetch(ctx, url, filename); err != nil {
		d.log.Warn().Err(err).Str("url", url).Msg("video download failed; falling back to URL")
		metrics.IncDownload("fallback")
		d.sink.Notify(ctx, adapter.Event{Type: adapter.EventDownloadFallback, URL: url})
		return
	}
	metrics.IncDownload("saved")
	d.log.Info().Str("file", filename).Msg("video saved")
}

func (d *Downloader) fetch(ctx context.Context, url, filename string) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(d.dir, filename+".part-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(d.dir, filename))
}

type statusError struct{ code int }

func (e *statusError) Error() string { return http.StatusText(e.code) }
