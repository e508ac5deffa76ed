// Registry construction for CryptoAdapter backends, grounded on
// trader/auto_trader.go's NewAutoTrader switch over config.Exchange. The
// signed venue is the default; the rest translate request/response shapes
// for operators who already hold keys on those venues. Only the signed
// package has unit tests; no adapter has integration tests.
package broker

import (
	"fmt"

	"hunter/internal/config"
	"hunter/internal/herr"
)

// Factory builds a CryptoAdapter for a given exchange name using process
// environment credentials.
type Factory struct {
	env *config.Env
}

// NewFactory constructs a broker Factory bound to the process environment.
func NewFactory(env *config.Env) *Factory {
	return &Factory{env: env}
}

// Build dispatches to the adapter constructor named by exchange. Callers
// pass the constructors in to avoid an import cycle between broker and its
// venue subpackages; see cmd/hunter/main.go for the wiring.
type Builders struct {
	Signed      func(env *config.Env) (CryptoAdapter, error)
	Binance     func(env *config.Env) (CryptoAdapter, error)
	Bybit       func(env *config.Env) (CryptoAdapter, error)
	Hyperliquid func(env *config.Env) (CryptoAdapter, error)
	Lighter     func(env *config.Env) (CryptoAdapter, error)
}

// Build resolves the CryptoAdapter for the named exchange, defaulting to
// "signed" when exchange is empty.
func (f *Factory) Build(exchange string, b Builders) (CryptoAdapter, error) {
	if exchange == "" {
		exchange = "signed"
	}
	switch exchange {
	case "signed":
		return b.Signed(f.env)
	case "binance":
		return b.Binance(f.env)
	case "bybit":
		return b.Bybit(f.env)
	case "hyperliquid":
		return b.Hyperliquid(f.env)
	case "lighter":
		return b.Lighter(f.env)
	default:
		return nil, fmt.Errorf("unknown exchange %q: %w", exchange, herr.ErrConfigurationMissing)
	}
}
