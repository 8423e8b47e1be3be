package client

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/hexpm"
)

const defaultConcurrency = 15

// BulkGetPackages fetches package records for multiple names in parallel.
// Individual fetch errors are silently ignored - those names are omitted from
// results. Returns a map of name to Package.
func (c *Client) BulkGetPackages(ctx context.Context, names []string) map[string]*hexpm.Package {
	return c.BulkGetPackagesWithConcurrency(ctx, names, defaultConcurrency)
}

// BulkGetPackagesWithConcurrency fetches packages with a custom concurrency
// limit.
func (c *Client) BulkGetPackagesWithConcurrency(ctx context.Context, names []string, concurrency int) map[string]*hexpm.Package {
	results := make(map[string]*hexpm.Package)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range names {
		g.Go(func() error {
			pkg, err := c.GetPackage(ctx, name)
			if err == nil && pkg != nil {
				mu.Lock()
				results[name] = pkg
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// BulkGetTarballs downloads release tarballs for a resolved set of selections
// in parallel. Individual download errors are silently ignored - those
// packages are omitted from results. Returns a map of name to tarball bytes.
func (c *Client) BulkGetTarballs(ctx context.Context, selections map[string]hexpm.Selection) map[string][]byte {
	results := make(map[string][]byte)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)

	for name, sel := range selections {
		g.Go(func() error {
			data, err := c.GetTarball(ctx, name, sel.Release)
			if err == nil {
				mu.Lock()
				results[name] = data
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
