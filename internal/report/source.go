package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DefaultBaseURL is the JHU CSSE daily reports root.
const DefaultBaseURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_daily_reports"

// FileLayout is the per-date file naming convention (MM-DD-YYYY.csv).
const FileLayout = "01-02-2006"

// Location builds the exact source location for a date.
func Location(base string, date time.Time) string {
	return strings.TrimRight(base, "/") + "/" + date.Format(FileLayout) + ".csv"
}

// Source retrieves the full content at a location. Implementations return
// *DataUnavailableError when nothing is published there and
// *MalformedDataError when the content is clearly not a table.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPSource fetches reports over HTTP.
type HTTPSource struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewHTTPSource returns a source using the given client timeout. A zero
// timeout keeps the transport default.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   64 << 20,
	}
}

// NewHTTPSourceWithClient allows injecting a custom client (used in tests).
func NewHTTPSourceWithClient(c *http.Client) *HTTPSource {
	s := NewHTTPSource(0)
	if c != nil {
		s.httpClient = c
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("User-Agent", "covidlens-cli")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &DataUnavailableError{Location: location, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &DataUnavailableError{Location: location, Status: resp.StatusCode}
	}
	if isMarkup(resp.Header.Get("Content-Type")) {
		return nil, &MalformedDataError{Location: location, Err: fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, &DataUnavailableError{Location: location, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > s.maxBytes {
		return nil, &MalformedDataError{Location: location, Err: fmt.Errorf("report exceeds %d bytes", s.maxBytes)}
	}
	return body, nil
}

// isMarkup reports content types that can never be a CSV report
// (error pages served with 200 by proxies and captive portals).
func isMarkup(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mt {
	case "text/html", "application/xhtml+xml", "application/json", "application/xml", "text/xml":
		return true
	}
	return false
}

// FSSource reads reports from a local mirror of the daily reports directory.
// Locations are resolved by file name only, so the same base URL template
// can be used for both sources.
type FSSource struct {
	fs afero.Fs
}

// NewFSSource serves files found directly under dir.
func NewFSSource(fsys afero.Fs, dir string) *FSSource {
	if dir != "" {
		fsys = afero.NewBasePathFs(fsys, dir)
	}
	return &FSSource{fs: fsys}
}

func (s *FSSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Base(location)
	b, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			return nil, &DataUnavailableError{Location: location, Err: err}
		}
		return nil, &DataUnavailableError{Location: location, Err: fmt.Errorf("read %s: %w", name, err)}
	}
	return b, nil
}
