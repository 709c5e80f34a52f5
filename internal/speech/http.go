package speech

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 60 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// do sends req and returns the response body, turning any non-200 reply
// into an error carrying the upstream message.
func do(client *http.Client, service string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error: %s - %s", service, resp.Status, string(body))
	}
	return body, nil
}
