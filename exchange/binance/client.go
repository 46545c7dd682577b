package binance

import (
	"fmt"
	"net/http"
	"net/url"

	futures "github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"tradeflow/config"
	"tradeflow/logger"
)

// Futures is the Binance USDⓈ-M futures implementation of exchange.Gateway.
// All REST calls go through a shared limiter so a burst of signals cannot
// trip the exchange request-weight limits.
type Futures struct {
	client  *futures.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewFutures builds the gateway from configuration. The HTTP transport pool
// is tuned the same way for every outbound call; testnet routing uses the
// client library's global switch, matching how the original deployment
// selected its environment.
func NewFutures(cfg *config.Config) *Futures {
	log := logger.GetLogger()

	if cfg.Exchange.Testnet {
		futures.UseTestnet = true
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Exchange.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Exchange.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Exchange.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Exchange.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Exchange.Timeout,
	}

	client := futures.NewClient(cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	client.HTTPClient = httpClient

	if cfg.Exchange.Endpoint != "" {
		if parsed, err := url.Parse(cfg.Exchange.Endpoint); err == nil {
			base := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
			client.SetApiEndpoint(base)
		}
	}

	limiter := rate.NewLimiter(
		rate.Limit(cfg.Exchange.RateLimit.RequestsPerSecond),
		cfg.Exchange.RateLimit.BurstSize,
	)

	log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"testnet":            cfg.Exchange.Testnet,
		"max_idle_conns":     cfg.Exchange.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": cfg.Exchange.ConnectionPool.MaxConnsPerHost,
		"timeout":            cfg.Exchange.Timeout,
		"requests_per_sec":   cfg.Exchange.RateLimit.RequestsPerSecond,
	}).Info("binance futures gateway initialized")

	return &Futures{
		client:  client,
		limiter: limiter,
		log:     log,
	}
}
