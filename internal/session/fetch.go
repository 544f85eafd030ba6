package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkortright/flashdeck/internal/errors"
)

// maxDatasetBytes bounds remote dataset responses. Datasets are hundreds of
// cards, not millions; anything near this limit is a misconfigured source.
const maxDatasetBytes = 32 << 20

// FetchDataset retrieves the raw dataset document from source, which is
// either a local file path or an http(s) URL. The transport is invisible to
// the caller: both return the same parsed-array input for card.LoadJSON.
func FetchDataset(ctx context.Context, source string, timeout time.Duration) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.NewInvalidRequest("dataset source is required")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchURL(ctx, source, timeout)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(source)
		}
		return nil, errors.NewLoadFailed(source, err)
	}
	return data, nil
}

func fetchURL(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewLoadFailed(url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("dataset fetch")
		}
		return nil, errors.NewLoadFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewLoadFailed(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes+1))
	if err != nil {
		return nil, errors.NewLoadFailed(url, err)
	}
	if len(data) > maxDatasetBytes {
		return nil, errors.NewLoadFailed(url, fmt.Errorf("response exceeds %d bytes", maxDatasetBytes))
	}
	return data, nil
}
