// Package discovery optionally registers a node with Consul for operational
// visibility (so an operator can ask "which E-nodes are alive right now"),
// generalizing the teacher's discovery/consul package. It is never used to
// bootstrap bully-election peers: spec §4.7/§4.9 fix that via the configured
// port range.
package discovery

import (
	"context"
	"fmt"
	"time"

	consul "github.com/hashicorp/consul/api"
)

// Registration wraps a Consul agent registration with its TTL health-check
// heartbeat.
type Registration struct {
	client     *consul.Client
	instanceID string
	serviceName string
}

// Register registers instanceID/serviceName at host:port with Consul at
// consulAddr. Returns a nil Registration and a non-nil error if Consul is
// unreachable; callers may carry on without it, since this is an ambient
// convenience, not a core dependency.
func Register(consulAddr, serviceName, instanceID, host string, port int) (*Registration, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = consulAddr
	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: new consul client: %w", err)
	}

	err = client.Agent().ServiceRegister(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: host,
		Port:    port,
		Check: &consul.AgentServiceCheck{
			CheckID:                        instanceID,
			TTL:                            "15s",
			DeregisterCriticalServiceAfter: "1m",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: register %s: %w", instanceID, err)
	}

	return &Registration{client: client, instanceID: instanceID, serviceName: serviceName}, nil
}

// Heartbeat passes the TTL health check; call it periodically (e.g. every
// 5s) for as long as the node is healthy.
func (r *Registration) Heartbeat() error {
	if r == nil {
		return nil
	}
	return r.client.Agent().UpdateTTL(r.instanceID, "online", consul.HealthPassing)
}

// RunHeartbeat starts a background heartbeat loop until ctx is cancelled.
func (r *Registration) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if r == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.Heartbeat()
			}
		}
	}()
}

// Deregister removes the instance from Consul, e.g. on operator shutdown.
func (r *Registration) Deregister() error {
	if r == nil {
		return nil
	}
	return r.client.Agent().ServiceDeregister(r.instanceID)
}
