package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"wisdom-core/internal/domain/entity"
)

const maxResponseBytes = 1 << 20

// postJSON sends body as JSON and returns the raw response body. Transport
// failures and non-2xx statuses come back as entity.ServiceError.
func postJSON(ctx context.Context, hc *http.Client, source, url string, headers map[string]string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build %s request: %w", source, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, transportError(source, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, transportError(source, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, resp.StatusCode, entity.NewServiceError(entity.KindForStatus(resp.StatusCode), source, resp.StatusCode,
			fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode)))
	}
	return raw, resp.StatusCode, nil
}

func transportError(source string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return entity.NewServiceError(entity.FailureNetwork, source, 0, err)
	}
	return entity.NewServiceError(entity.FailureUpstream, source, 0, err)
}
