package service

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/port/cache"
	"github.com/swarmworks/hivemind/internal/port/provider"
	"github.com/swarmworks/hivemind/internal/resilience"
	"github.com/swarmworks/hivemind/internal/secrets"
	"github.com/swarmworks/hivemind/internal/telemetry"
)

// Gateway routes model invocations to the right vendor adapter, resolves the
// agent's credential and wraps every call in a per-vendor circuit breaker and
// timeout.
type Gateway struct {
	clients      map[string]provider.Client
	breakers     map[string]*resilience.Breaker
	platformKeys map[string]string
	sealer       *secrets.Sealer
	cache        cache.Cache
	credTTL      time.Duration
	timeout      time.Duration
	metrics      *telemetry.Metrics
}

// GatewayConfig bundles the construction parameters for a Gateway.
type GatewayConfig struct {
	// PlatformKeys maps a vendor name to the shared platform credential used
	// by agents without a sealed credential of their own.
	PlatformKeys map[string]string
	// CredentialTTL bounds how long an unsealed agent credential stays cached.
	CredentialTTL time.Duration
	// Timeout is the per-call deadline.
	Timeout time.Duration
	// BreakerMaxFailures and BreakerTimeout configure the per-vendor breaker.
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// NewGateway creates a Gateway over the given vendor adapters.
func NewGateway(clients map[string]provider.Client, sealer *secrets.Sealer, c cache.Cache, metrics *telemetry.Metrics, cfg GatewayConfig) *Gateway {
	breakers := make(map[string]*resilience.Breaker, len(clients))
	for name := range clients {
		breakers[name] = resilience.NewBreaker(cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	}
	return &Gateway{
		clients:      clients,
		breakers:     breakers,
		platformKeys: cfg.PlatformKeys,
		sealer:       sealer,
		cache:        c,
		credTTL:      cfg.CredentialTTL,
		timeout:      cfg.Timeout,
		metrics:      metrics,
	}
}

// Invoke performs one model call for the agent.
func (g *Gateway) Invoke(ctx context.Context, ag *agent.Agent, req provider.Request) (*provider.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider request: %w", err)
	}

	client, ok := g.clients[ag.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q for agent %s", ag.Provider, ag.ID)
	}

	credential, err := g.credential(ctx, ag)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var resp *provider.Response
	start := time.Now()
	err = g.breakers[ag.Provider].Execute(func() error {
		var callErr error
		resp, callErr = client.Invoke(callCtx, credential, req)
		return callErr
	})
	if g.metrics != nil {
		g.metrics.ProviderLatency.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// credential resolves the API key for the agent: its own sealed credential if
// present, otherwise the shared platform key for its vendor. Unsealed
// credentials are cached with a bounded TTL.
func (g *Gateway) credential(ctx context.Context, ag *agent.Agent) (string, error) {
	if ag.CredentialSealed == "" {
		key, ok := g.platformKeys[ag.Provider]
		if !ok || key == "" {
			return "", fmt.Errorf("no platform credential configured for provider %q", ag.Provider)
		}
		return key, nil
	}

	cacheKey := "credential:" + ag.ID
	if data, ok, err := g.cache.Get(ctx, cacheKey); err == nil && ok {
		return string(data), nil
	}

	plain, err := g.sealer.Open(ag.CredentialSealed)
	if err != nil {
		return "", fmt.Errorf("unseal credential for agent %s: %w", ag.ID, err)
	}

	_ = g.cache.Set(ctx, cacheKey, []byte(plain), g.credTTL)
	return plain, nil
}
