package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
)

// HTTPClient makes REST calls to the device-telemetry API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g.
// "http://127.0.0.1:8420").
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetDevice fetches /devices/{id}.
func (c *HTTPClient) GetDevice(id string) (*Device, error) {
	var d Device
	if err := c.get("/devices/"+id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetLive fetches /devices/{id}/live, the current telemetry snapshot. A
// non-success status is an error; the live session treats it as terminal.
func (c *HTTPClient) GetLive(id string) (session.TelemetrySample, error) {
	var s session.TelemetrySample
	if err := c.get("/devices/"+id+"/live", &s); err != nil {
		return session.TelemetrySample{}, err
	}
	return s, nil
}

// GetWirelessInterfaces fetches /devices/{id}/wireless-interfaces.
func (c *HTTPClient) GetWirelessInterfaces(id string) ([]WirelessInterface, error) {
	var out []WirelessInterface
	if err := c.get("/devices/"+id+"/wireless-interfaces", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatistics fetches /devices/{id}/statistics, the historical view.
func (c *HTTPClient) GetStatistics(id string) (*DeviceStatistics, error) {
	var st DeviceStatistics
	if err := c.get("/devices/"+id+"/statistics", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
