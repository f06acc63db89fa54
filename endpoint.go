package gelf

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
)

// Endpoint is a collector's GELF UDP input.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) validate() error {
	if len(e.Host) == 0 {
		return fmt.Errorf("gelf: endpoint %q: valid host required", e)
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("gelf: endpoint %q: port out of range", e)
	}
	return nil
}

// EndpointSelector hands out endpoints round-robin. It is safe for concurrent
// use.
type EndpointSelector struct {
	endpoints []Endpoint
	calls     atomic.Uint64
}

// NewEndpointSelector returns a selector over a copy of endpoints, which must
// not be empty.
func NewEndpointSelector(endpoints []Endpoint) (*EndpointSelector, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	for _, e := range endpoints {
		if err := e.validate(); err != nil {
			return nil, err
		}
	}
	return &EndpointSelector{endpoints: append([]Endpoint(nil), endpoints...)}, nil
}

// Next returns the endpoint for the next message. The first call returns the
// first endpoint.
func (s *EndpointSelector) Next() Endpoint {
	n := s.calls.Add(1) - 1
	return s.endpoints[n%uint64(len(s.endpoints))]
}

// Endpoints returns a copy of the configured endpoints.
func (s *EndpointSelector) Endpoints() []Endpoint {
	return append([]Endpoint(nil), s.endpoints...)
}
