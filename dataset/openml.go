package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// DefaultOpenMLURL は OpenML REST API のベース URL
const DefaultOpenMLURL = "https://api.openml.org"

// Fetcher は OpenML からデータセットの ARFF を取得し、ディスクにキャッシュする。
// ネットワークエラーはリトライせずにそのまま返す
type Fetcher struct {
	BaseURL  string
	CacheDir string
	Client   *http.Client
	logger   log.Logger
}

// NewFetcher は cacheDir をキャッシュ先とする Fetcher を作成する
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		BaseURL:  DefaultOpenMLURL,
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   log.GetLoggerWithName("dataset.openml"),
	}
}

type dataDescription struct {
	Description struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Version string `json:"version"`
		Format  string `json:"format"`
		FileID  string `json:"file_id"`
		URL     string `json:"url"`
	} `json:"data_set_description"`
}

// CachePath は dataID の ARFF のキャッシュパスを返す
func (f *Fetcher) CachePath(dataID int) string {
	return filepath.Join(f.CacheDir, "openml", fmt.Sprintf("%d.arff", dataID))
}

// Fetch は dataID の ARFF を解析して返す。キャッシュがあればネットワークに触れない
func (f *Fetcher) Fetch(ctx context.Context, dataID int) (*ARFF, error) {
	path := f.CachePath(dataID)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "cyclefeat: stat cache %s", path)
		}
		if err := f.download(ctx, dataID, path); err != nil {
			return nil, err
		}
	} else {
		f.logger.Debug("using cached dataset", log.SourceKey, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cyclefeat: open cache %s", path)
	}
	defer file.Close()

	return ParseARFF(file)
}

func (f *Fetcher) download(ctx context.Context, dataID int, path string) error {
	start := time.Now()
	descURL := fmt.Sprintf("%s/api/v1/json/data/%d", f.BaseURL, dataID)

	body, err := f.get(ctx, descURL)
	if err != nil {
		return err
	}
	var desc dataDescription
	err = json.NewDecoder(body).Decode(&desc)
	body.Close()
	if err != nil {
		return errors.Wrapf(err, "cyclefeat: decode openml description for data %d", dataID)
	}
	if desc.Description.URL == "" {
		return errors.Newf("cyclefeat: openml description for data %d has no download url", dataID)
	}

	body, err = f.get(ctx, desc.Description.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "cyclefeat: create cache dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return errors.Wrap(err, "cyclefeat: create temp file")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "cyclefeat: download %s", desc.Description.URL)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "cyclefeat: move download into cache")
	}

	f.logger.Info("dataset downloaded",
		log.SourceKey, desc.Description.URL,
		log.ModelNameKey, desc.Description.Name,
		"bytes", n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cyclefeat: build request for %s", url)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cyclefeat: GET %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf("cyclefeat: GET %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
