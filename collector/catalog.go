package collector

import (
	"net/http"

	"github.com/radryc/binance-exporter/binance"
)

// MetricSpec describes one wallet data source: which endpoint to call and how
// to turn its line items into metric records. The catalog is fixed for the
// process lifetime; supporting a new wallet type is a new entry, not new
// collector code.
type MetricSpec struct {
	Name         string            // output metric family name
	Help         string            // metric family description
	ValueField   string            // JSON key holding the amount in each line item
	Method       string            // http.MethodGet or http.MethodPost
	Path         string            // API path
	Params       *binance.Params   // fixed parameters merged into every signed request
	ParamsInBody bool              // POST endpoints expecting a form body instead of query parameters
	Labels       map[string]string // fixed labels stamped on every record
	UnwrapKey    string            // nested array field when the response is wrapped, "" for bare arrays
}

// Catalog returns the wallet sources scraped on every collection round.
// The Simple Earn position endpoints wrap their line items in a rows field;
// the funding and spot endpoints return bare arrays.
func Catalog() []MetricSpec {
	return []MetricSpec{
		{
			Name:       "binance_earn_wallet",
			Help:       "Binance Earn Wallet",
			ValueField: "totalAmount",
			Method:     http.MethodGet,
			Path:       "/sapi/v1/simple-earn/flexible/position",
			Labels:     map[string]string{"type": "flexible"},
			UnwrapKey:  "rows",
		},
		{
			Name:       "binance_earn_wallet",
			Help:       "Binance Earn Wallet",
			ValueField: "amount",
			Method:     http.MethodGet,
			Path:       "/sapi/v1/simple-earn/locked/position",
			Labels:     map[string]string{"type": "locked"},
			UnwrapKey:  "rows",
		},
		{
			Name:       "binance_funding_wallet",
			Help:       "Binance Funding Wallet",
			ValueField: "free",
			Method:     http.MethodPost,
			Path:       "/sapi/v1/asset/get-funding-asset",
		},
		{
			Name:       "binance_spot_wallet",
			Help:       "Binance Spot Wallet",
			ValueField: "free",
			Method:     http.MethodPost,
			Path:       "/sapi/v3/asset/getUserAsset",
		},
	}
}
