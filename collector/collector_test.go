package collector

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radryc/binance-exporter/binance"
)

const testJob = "binance-exporter"

type stubGateway struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (g *stubGateway) Call(_ context.Context, _ string, path string, _ *binance.Params, _ bool) ([]byte, error) {
	g.calls = append(g.calls, path)
	if err, ok := g.errs[path]; ok {
		return nil, err
	}
	body, ok := g.responses[path]
	if !ok {
		return nil, &binance.StatusError{Code: http.StatusNotFound, Body: "no stub for " + path}
	}
	return []byte(body), nil
}

func newTestCollector(gateway Gateway, catalog []MetricSpec) *Collector {
	return New(gateway, catalog, testJob, nil)
}

func TestSnapshotUnwrapsWrappedResponse(t *testing.T) {
	catalog := []MetricSpec{{
		Name:       "binance_earn_wallet",
		Help:       "Binance Earn Wallet",
		ValueField: "amount",
		Method:     http.MethodGet,
		Path:       "/earn",
		Labels:     map[string]string{"type": "locked"},
		UnwrapKey:  "rows",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/earn": `{"rows":[{"asset":"BTC","amount":"1.5"}],"total":1}`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 1.5, records[0].Value)
	require.Equal(t, "BTC", records[0].Labels["asset"])
}

func TestSnapshotBareSequence(t *testing.T) {
	catalog := []MetricSpec{{
		Name:       "binance_funding_wallet",
		Help:       "Binance Funding Wallet",
		ValueField: "free",
		Method:     http.MethodPost,
		Path:       "/funding",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/funding": `[{"asset":"USDT","free":"100.0"}]`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 100.0, records[0].Value)
	require.Equal(t, "USDT", records[0].Labels["asset"])
}

func TestSnapshotLabelComposition(t *testing.T) {
	catalog := []MetricSpec{{
		Name:       "binance_earn_wallet",
		Help:       "Binance Earn Wallet",
		ValueField: "totalAmount",
		Method:     http.MethodGet,
		Path:       "/earn",
		Labels:     map[string]string{"type": "flexible"},
		UnwrapKey:  "rows",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/earn": `{"rows":[{"asset":"SOL","totalAmount":"7.25"}]}`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, map[string]string{
		"job":   testJob,
		"asset": "SOL",
		"type":  "flexible",
	}, records[0].Labels)
}

func TestSnapshotSpotWalletEndToEnd(t *testing.T) {
	catalog := []MetricSpec{{
		Name:       "binance_spot_wallet",
		Help:       "Binance Spot Wallet",
		ValueField: "free",
		Method:     http.MethodPost,
		Path:       "/sapi/v3/asset/getUserAsset",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/sapi/v3/asset/getUserAsset": `[{"asset":"ETH","free":"2.3"}]`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Record{{
		Name:   "binance_spot_wallet",
		Help:   "Binance Spot Wallet",
		Value:  2.3,
		Labels: map[string]string{"job": testJob, "asset": "ETH"},
	}}, records)
}

func TestSnapshotDeterministicOrder(t *testing.T) {
	catalog := []MetricSpec{
		{Name: "binance_funding_wallet", ValueField: "free", Method: http.MethodPost, Path: "/funding"},
		{Name: "binance_spot_wallet", ValueField: "free", Method: http.MethodPost, Path: "/spot"},
	}
	gateway := &stubGateway{responses: map[string]string{
		"/funding": `[{"asset":"BTC","free":"1"},{"asset":"ETH","free":"2"}]`,
		"/spot":    `[{"asset":"USDT","free":"3"}]`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"/funding", "/spot"}, gateway.calls)

	var order []string
	for _, r := range records {
		order = append(order, r.Labels["asset"])
	}
	require.Equal(t, []string{"BTC", "ETH", "USDT"}, order)
}

func TestSnapshotIdempotent(t *testing.T) {
	catalog := []MetricSpec{{
		Name: "binance_spot_wallet", ValueField: "free", Method: http.MethodPost, Path: "/spot",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/spot": `[{"asset":"ETH","free":"2.3"}]`,
	}}
	c := newTestCollector(gateway, catalog)

	first, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	second, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, gateway.calls, 2)
}

func TestSnapshotFatalOnGatewayError(t *testing.T) {
	catalog := []MetricSpec{
		{Name: "binance_funding_wallet", ValueField: "free", Method: http.MethodPost, Path: "/funding"},
		{Name: "binance_spot_wallet", ValueField: "free", Method: http.MethodPost, Path: "/spot"},
	}
	gateway := &stubGateway{
		responses: map[string]string{"/funding": `[{"asset":"BTC","free":"1"}]`},
		errs:      map[string]error{"/spot": &binance.StatusError{Code: http.StatusTooManyRequests, Body: "rate limited"}},
	}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	var statusErr *binance.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	require.Nil(t, records)
}

func TestSnapshotFatalOnDataShape(t *testing.T) {
	catalog := func(valueField, unwrapKey string) []MetricSpec {
		return []MetricSpec{{
			Name: "binance_spot_wallet", ValueField: valueField,
			Method: http.MethodPost, Path: "/spot", UnwrapKey: unwrapKey,
		}}
	}

	cases := map[string]struct {
		specs []MetricSpec
		body  string
	}{
		"malformed json":     {catalog("free", ""), `{not json`},
		"object not array":   {catalog("free", ""), `{"asset":"ETH","free":"1"}`},
		"missing unwrap key": {catalog("free", "rows"), `{"data":[]}`},
		"missing asset":      {catalog("free", ""), `[{"free":"1"}]`},
		"missing value":      {catalog("free", ""), `[{"asset":"ETH"}]`},
		"non numeric value":  {catalog("free", ""), `[{"asset":"ETH","free":"abc"}]`},
		"non scalar value":   {catalog("free", ""), `[{"asset":"ETH","free":{"x":1}}]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gateway := &stubGateway{responses: map[string]string{"/spot": tc.body}}
			records, err := newTestCollector(gateway, tc.specs).Snapshot(context.Background())
			require.Error(t, err)
			require.Nil(t, records)
		})
	}
}

func TestSnapshotAcceptsNumericValueField(t *testing.T) {
	catalog := []MetricSpec{{
		Name: "binance_spot_wallet", ValueField: "free", Method: http.MethodPost, Path: "/spot",
	}}
	gateway := &stubGateway{responses: map[string]string{
		"/spot": `[{"asset":"ETH","free":2.3}]`,
	}}

	records, err := newTestCollector(gateway, catalog).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.3, records[0].Value)
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 4)

	for _, spec := range catalog {
		require.NotEmpty(t, spec.Name)
		require.NotEmpty(t, spec.Help)
		require.NotEmpty(t, spec.ValueField)
		require.Contains(t, []string{http.MethodGet, http.MethodPost}, spec.Method)
		require.Regexp(t, `^binance_[a-z_]+$`, spec.Name)
		// Fixed labels may never shadow the reserved record labels.
		require.NotContains(t, spec.Labels, "job")
		require.NotContains(t, spec.Labels, "asset")
	}

	flexible, locked := catalog[0], catalog[1]
	require.Equal(t, "rows", flexible.UnwrapKey)
	require.Equal(t, "rows", locked.UnwrapKey)
	require.Equal(t, flexible.Name, locked.Name)
	require.NotEqual(t, flexible.Labels["type"], locked.Labels["type"])

	require.Empty(t, catalog[2].UnwrapKey)
	require.Empty(t, catalog[3].UnwrapKey)
	require.Equal(t, "/sapi/v3/asset/getUserAsset", catalog[3].Path)
}
