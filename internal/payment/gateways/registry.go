package gateways

import (
	"strings"

	"github.com/hirelink/hirelink/internal/payment/domain"
)

type Registry struct {
	gateways map[string]domain.Gateway
}

func NewRegistry(gateways ...domain.Gateway) *Registry {
	registry := &Registry{gateways: map[string]domain.Gateway{}}
	for _, gateway := range gateways {
		if gateway == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(gateway.Name()))
		if name == "" {
			continue
		}
		registry.gateways[name] = gateway
	}
	return registry
}

func (r *Registry) Exists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.gateways[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (r *Registry) Get(name string) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrUnknownGateway
	}
	gateway, ok := r.gateways[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, domain.ErrUnknownGateway
	}
	return gateway, nil
}
