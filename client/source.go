package client

import (
	"context"
	"sync"

	"github.com/git-pkgs/hexpm"
	"github.com/git-pkgs/hexpm/version"
)

// RecordSource adapts a client into a resolution Source, fetching package
// records on demand and caching them for the life of the source. It is
// request-scoped: the context it was created with covers every fetch the
// resolution triggers.
type RecordSource struct {
	client *Client
	ctx    context.Context

	mu    sync.Mutex
	cache map[string]*hexpm.Package
}

// NewSource returns a resolution source backed by this client.
func (c *Client) NewSource(ctx context.Context) *RecordSource {
	return &RecordSource{
		client: c,
		ctx:    ctx,
		cache:  make(map[string]*hexpm.Package),
	}
}

// FindPackage returns the package record, fetching it on first use. Releases
// are normalized into resolution order.
func (s *RecordSource) FindPackage(name string) (*hexpm.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.cache[name]; ok {
		return p, nil
	}
	p, err := s.client.GetPackage(s.ctx, name)
	if err != nil {
		return nil, err
	}
	hexpm.SortReleases(p.Releases)
	s.cache[name] = p
	return p, nil
}

// ReleasesSatisfying returns the package's releases matching a requirement,
// newest first with pre-releases last, excluding retired releases unless
// includeRetired is set.
func (s *RecordSource) ReleasesSatisfying(name string, req version.Requirement, includeRetired bool) ([]*hexpm.Release, error) {
	p, err := s.FindPackage(name)
	if err != nil {
		return nil, err
	}
	var out []*hexpm.Release
	for _, r := range p.Releases {
		if r.IsRetired() && !includeRetired {
			continue
		}
		if req.Match(r.Version) {
			out = append(out, r)
		}
	}
	return out, nil
}
