// Package orders is the ShipStation adapter behind the pipeline's
// OrderLookup contract.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// Client implements pipeline.OrderLookup over the ShipStation REST API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// New creates a ShipStation client.
func New(cfg *config.ShipStationConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ordersResponse struct {
	Orders []struct {
		OrderNumber string `json:"orderNumber"`
		OrderStatus string `json:"orderStatus"`
		OrderDate   string `json:"orderDate"`
	} `json:"orders"`
}

type shipmentsResponse struct {
	Shipments []struct {
		CarrierCode    string `json:"carrierCode"`
		TrackingNumber string `json:"trackingNumber"`
		ShipDate       string `json:"shipDate"`
	} `json:"shipments"`
}

// Lookup resolves an order number to its status and shipments. A missing
// order is a successful lookup with Found=false, not an error.
func (c *Client) Lookup(ctx context.Context, orderNumber string) (*pipeline.OrderInfo, error) {
	var orders ordersResponse
	if err := c.get(ctx, "/orders", url.Values{"orderNumber": {orderNumber}}, &orders); err != nil {
		return nil, err
	}

	if len(orders.Orders) == 0 {
		return &pipeline.OrderInfo{Found: false, ErrorMessage: "no matching order"}, nil
	}
	order := orders.Orders[0]

	info := &pipeline.OrderInfo{
		Found:       true,
		OrderStatus: order.OrderStatus,
		OrderDate:   order.OrderDate,
	}

	var shipments shipmentsResponse
	if err := c.get(ctx, "/shipments", url.Values{"orderNumber": {orderNumber}}, &shipments); err != nil {
		// The order itself resolved; report it without shipment detail.
		info.ErrorMessage = fmt.Sprintf("shipment lookup failed: %v", err)
		return info, nil
	}
	for _, s := range shipments.Shipments {
		info.Shipments = append(info.Shipments, pipeline.Shipment{
			Carrier:        s.CarrierCode,
			TrackingNumber: s.TrackingNumber,
			ShipDate:       s.ShipDate,
		})
	}

	return info, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
