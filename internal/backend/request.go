package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
)

const (
	contentType    = "application/json"
	acceptEncoding = "gzip"

	// maxDrain bounds how much of a failed response is discarded to reuse the connection.
	maxDrain = 64 << 10
)

func (c *Client) postJSON(ctx context.Context, api, url string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", api, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(api, req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	// The status decides the outcome, the body of a failed call is never read.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend answered with bad status",
			zap.String(logger.FieldAPI, api),
			zap.Int("status", resp.StatusCode),
		)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		return nil, &BackendError{API: api, StatusCode: resp.StatusCode}
	}

	data, err := readBody(resp)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	c.logger.Debug("got response from backend",
		zap.String(logger.FieldAPI, api),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
	)

	var result json.RawMessage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &MalformedResponseError{API: api, Err: err}
	}

	return result, nil
}

func (c *Client) request(api string, req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String(logger.FieldAPI, api),
		zap.String(logger.FieldURL, req.URL.String()),
	)

	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	return req
}

// readBody reads the response body. Setting Accept-Encoding by hand disables
// transparent decompression in net/http, so gzip is handled here.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(reader)
}
