package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/radryc/binance-exporter/binance"
)

const (
	jobLabel   = "job"
	assetLabel = "asset"

	// Every observed wallet response names its instrument identifier asset.
	assetField = "asset"
)

// Record is one normalized balance sample. Records are produced fresh on
// every snapshot and discarded after serialization; nothing accumulates
// across scrapes.
type Record struct {
	Name   string
	Help   string
	Value  float64
	Labels map[string]string
}

// Gateway is the signed-call surface the collector needs from the API client.
type Gateway interface {
	Call(ctx context.Context, method, path string, extra *binance.Params, inBody bool) ([]byte, error)
}

// Collector walks the catalog and normalizes exchange responses into records.
type Collector struct {
	gateway Gateway
	catalog []MetricSpec
	job     string
	logger  *zap.SugaredLogger
}

// New constructs a collector over the given catalog. job becomes the job
// label on every record.
func New(gateway Gateway, catalog []MetricSpec, job string, logger *zap.SugaredLogger) *Collector {
	return &Collector{gateway: gateway, catalog: catalog, job: job, logger: logger}
}

// Snapshot performs one full collection round: one signed call per catalog
// entry, strictly sequential and in catalog order. Any transport, protocol,
// or data-shape error aborts the whole snapshot; partial results are never
// returned.
func (c *Collector) Snapshot(ctx context.Context) ([]Record, error) {
	var records []Record
	for _, spec := range c.catalog {
		body, err := c.gateway.Call(ctx, spec.Method, spec.Path, spec.Params, spec.ParamsInBody)
		if err != nil {
			return nil, err
		}
		items, err := lineItems(body, spec.UnwrapKey)
		if err != nil {
			return nil, fmt.Errorf("collector: %s %s: %w", spec.Method, spec.Path, err)
		}
		for _, item := range items {
			record, err := c.normalize(spec, item)
			if err != nil {
				return nil, fmt.Errorf("collector: %s %s: %w", spec.Method, spec.Path, err)
			}
			records = append(records, record)
		}
	}
	if c.logger != nil {
		c.logger.Infow("collected snapshot", "records", len(records))
	}
	return records, nil
}

// lineItems decodes a response body into its balance line items, descending
// into unwrapKey when the endpoint wraps the array in an object.
func lineItems(body []byte, unwrapKey string) ([]map[string]json.RawMessage, error) {
	if unwrapKey != "" {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode response object: %w", err)
		}
		inner, ok := wrapper[unwrapKey]
		if !ok {
			return nil, fmt.Errorf("response missing %q field", unwrapKey)
		}
		body = inner
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	return items, nil
}

// normalize turns one line item into a record. Labels are the job and asset
// pair merged with the spec's fixed labels; the catalog guarantees the key
// sets never collide.
func (c *Collector) normalize(spec MetricSpec, item map[string]json.RawMessage) (Record, error) {
	asset, err := scalarField(item, assetField)
	if err != nil {
		return Record{}, err
	}
	raw, err := scalarField(item, spec.ValueField)
	if err != nil {
		return Record{}, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse %q value %q: %w", spec.ValueField, raw, err)
	}
	labels := map[string]string{jobLabel: c.job, assetLabel: asset}
	for k, v := range spec.Labels {
		labels[k] = v
	}
	return Record{Name: spec.Name, Help: spec.Help, Value: value, Labels: labels}, nil
}

// scalarField reads a field that arrives either as a JSON string (the
// exchange's usual decimal-string amounts) or a bare number.
func scalarField(item map[string]json.RawMessage, key string) (string, error) {
	raw, ok := item[key]
	if !ok {
		return "", fmt.Errorf("line item missing %q field", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("field %q is neither string nor number", key)
}
