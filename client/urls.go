package client

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/hexpm"
)

// URLs constructs user-facing URLs for packages in a repository.
type URLs struct {
	repo hexpm.Repo
}

// URLs returns a URL builder for the client's repository.
func (c *Client) URLs() *URLs {
	return &URLs{repo: c.repo}
}

// Registry returns the package's page on the repository website. Only the
// default repository has a public website.
func (u *URLs) Registry(name, version string) string {
	if u.repo.Name != hexpm.DefaultRepository {
		return ""
	}
	base := strings.TrimSuffix(u.repo.APIURL, "/api")
	if version != "" {
		return fmt.Sprintf("%s/packages/%s/%s", base, name, version)
	}
	return fmt.Sprintf("%s/packages/%s", base, name)
}

// Download returns the release tarball URL.
func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s/tarballs/%s-%s.tar", u.repo.RepoURL, name, version)
}

// Documentation returns the package's hexdocs URL. Only the default
// repository publishes to hexdocs.
func (u *URLs) Documentation(name, version string) string {
	if u.repo.Name != hexpm.DefaultRepository {
		return ""
	}
	if version != "" {
		return fmt.Sprintf("https://hexdocs.pm/%s/%s", name, version)
	}
	return fmt.Sprintf("https://hexdocs.pm/%s", name)
}

// PURL returns the package URL identifier.
func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:hex/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:hex/%s", name)
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "registry", "download", "docs", and "purl".
func (u *URLs) BuildURLs(name, version string) map[string]string {
	result := make(map[string]string)
	if v := u.Registry(name, version); v != "" {
		result["registry"] = v
	}
	if v := u.Download(name, version); v != "" {
		result["download"] = v
	}
	if v := u.Documentation(name, version); v != "" {
		result["docs"] = v
	}
	if v := u.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}
