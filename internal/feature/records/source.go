package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Source 远端集合读取接口
type Source interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// FetchError 非 2xx 或传输失败
type FetchError struct {
	Status int // 0 表示传输层错误
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch records: upstream status %d", e.Status)
	}
	return fmt.Sprintf("failed to fetch records: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) FetchAll(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, &FetchError{Status: res.StatusCode}
	}
	var out []Record
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("decode: %w", err)}
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}
