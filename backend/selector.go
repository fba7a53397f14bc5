package backend

import (
	"fmt"
	"strings"
)

// Route names the store a call is sent to.
type Route string

const (
	RouteLocal  Route = "local"
	RouteRemote Route = "remote"
)

// Selector implements the per-call routing rule: the remote store is preferred
// whenever a caller id is supplied and the remote store reports itself
// initialized. Nothing is cached between calls.
type Selector struct {
	local  Store
	remote RemoteStore
}

// NewSelector creates a Selector. remote may be nil when no remote store is configured.
func NewSelector(local Store, remote RemoteStore) *Selector {
	return &Selector{
		local:  local,
		remote: remote,
	}
}

// Select chooses the store for one call.
// Selection priority:
// 1. Remote store, if callerID is non-empty and the remote store is available
// 2. Local store
func (s *Selector) Select(callerID string) (Route, Store) {
	if strings.TrimSpace(callerID) != "" && s.RemoteAvailable() {
		return RouteRemote, s.remote
	}
	return RouteLocal, s.local
}

// Local returns the fallback store.
func (s *Selector) Local() Store {
	return s.local
}

// Remote returns the remote store, or nil when none is configured.
func (s *Selector) Remote() RemoteStore {
	return s.remote
}

// RemoteAvailable reports whether the remote store is configured and initialized.
func (s *Selector) RemoteAvailable() bool {
	return s.remote != nil && s.remote.Available()
}

// Describe returns information about the route a caller would take.
func (s *Selector) Describe(callerID string) RouteInfo {
	route, _ := s.Select(callerID)
	return RouteInfo{
		CallerID:         callerID,
		Route:            route,
		RemoteConfigured: s.remote != nil,
		RemoteAvailable:  s.RemoteAvailable(),
	}
}

// RouteInfo contains routing information for display purposes.
type RouteInfo struct {
	CallerID         string `json:"callerId" yaml:"caller_id"`
	Route            Route  `json:"route" yaml:"route"`
	RemoteConfigured bool   `json:"remoteConfigured" yaml:"remote_configured"`
	RemoteAvailable  bool   `json:"remoteAvailable" yaml:"remote_available"`
}

// String returns a formatted string representation of the route info.
func (ri RouteInfo) String() string {
	var parts []string
	caller := ri.CallerID
	if caller == "" {
		caller = "(anonymous)"
	}
	parts = append(parts, fmt.Sprintf("Caller: %s", caller))
	parts = append(parts, fmt.Sprintf("Store: %s", ri.Route))

	var status []string
	if ri.RemoteConfigured {
		status = append(status, "configured")
	} else {
		status = append(status, "not configured")
	}
	if ri.RemoteAvailable {
		status = append(status, "ready")
	} else {
		status = append(status, "not ready")
	}
	parts = append(parts, fmt.Sprintf("Remote: %s", strings.Join(status, ", ")))

	return strings.Join(parts, " | ")
}
