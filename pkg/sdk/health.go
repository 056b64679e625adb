package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

// HealthServices are the services that expose a /health endpoint behind the gateway.
var HealthServices = []string{"gateway", "users", "auth", "authorization"}

// Health probes /<service>/health. Services answer with an envelope, a bare
// JSON object, or plain text; all three are folded into a HealthReport.
func (c *Client) Health(ctx context.Context, service string) (*HealthReport, error) {
	data, err := c.Do(ctx, http.MethodGet, "/"+service+"/health", nil, nil)
	if err != nil {
		return nil, err
	}
	report, err := decodeHealth(data)
	if err != nil {
		return nil, &APIError{Kind: KindServer, Message: fmt.Sprintf("malformed %s health payload", service), Err: err}
	}
	if report.Service == "" {
		report.Service = service
	}
	return report, nil
}

func decodeHealth(data json.RawMessage) (*HealthReport, error) {
	report := &HealthReport{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return report, nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		// Plain-text body such as "OK".
		report.Status = string(trimmed)
		return report, nil
	}
	switch v := raw.(type) {
	case string:
		report.Status = v
		return report, nil
	case map[string]any:
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           report,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(v); err != nil {
			return nil, err
		}
		return report, nil
	default:
		return nil, fmt.Errorf("unexpected health payload type %T", raw)
	}
}
