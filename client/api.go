package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/git-pkgs/hexpm"
)

// PackageInfo is the JSON API's view of a package: human metadata the binary
// records do not carry.
type PackageInfo struct {
	Name        string
	Description string
	Licenses    []string
	Links       map[string]string
	Downloads   int
	Owners      []Owner
}

// Owner is a package owner as reported by the API.
type Owner struct {
	Username string
	Email    string
}

// ReleaseInfo is the JSON API's view of one release.
type ReleaseInfo struct {
	Version      string
	Checksum     string
	Downloads    int
	Retired      *hexpm.RetirementStatus
	Requirements map[string]RequirementInfo
}

// RequirementInfo is one requirement edge as reported by the API.
type RequirementInfo struct {
	Requirement string
	Optional    bool
	App         string
}

type packageResponse struct {
	Name      string        `json:"name"`
	Meta      metaInfo      `json:"meta"`
	Releases  []releaseInfo `json:"releases"`
	Downloads downloadsInfo `json:"downloads"`
	Owners    []ownerInfo   `json:"owners"`
}

type metaInfo struct {
	Description string            `json:"description"`
	Licenses    []string          `json:"licenses"`
	Links       map[string]string `json:"links"`
}

type releaseInfo struct {
	Version    string `json:"version"`
	InsertedAt string `json:"inserted_at"`
}

type downloadsInfo struct {
	All int `json:"all"`
}

type ownerInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type versionResponse struct {
	Version      string                     `json:"version"`
	Checksum     string                     `json:"checksum"`
	Downloads    int                        `json:"downloads"`
	Retirement   *retirementInfo            `json:"retirement"`
	Requirements map[string]requirementInfo `json:"requirements"`
}

type retirementInfo struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type requirementInfo struct {
	Requirement string `json:"requirement"`
	Optional    bool   `json:"optional"`
	App         string `json:"app"`
}

// GetPackageInfo fetches a package's JSON API metadata.
func (c *Client) GetPackageInfo(ctx context.Context, name string) (*PackageInfo, error) {
	var resp packageResponse
	if err := c.getJSON(ctx, c.repo.APIURL+"/packages/"+name, &resp); err != nil {
		if errors.Is(err, hexpm.ErrNotFound) {
			return nil, &hexpm.NotFoundError{Repository: c.repo.Name, Name: name}
		}
		return nil, err
	}

	info := &PackageInfo{
		Name:        resp.Name,
		Description: resp.Meta.Description,
		Licenses:    resp.Meta.Licenses,
		Links:       resp.Meta.Links,
		Downloads:   resp.Downloads.All,
	}
	for _, o := range resp.Owners {
		info.Owners = append(info.Owners, Owner{Username: o.Username, Email: o.Email})
	}
	return info, nil
}

// GetReleaseInfo fetches one release's JSON API metadata.
func (c *Client) GetReleaseInfo(ctx context.Context, name, version string) (*ReleaseInfo, error) {
	url := fmt.Sprintf("%s/packages/%s/releases/%s", c.repo.APIURL, name, version)
	var resp versionResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		if errors.Is(err, hexpm.ErrNotFound) {
			return nil, &hexpm.NotFoundError{Repository: c.repo.Name, Name: name, Version: version}
		}
		return nil, err
	}

	info := &ReleaseInfo{
		Version:   resp.Version,
		Checksum:  resp.Checksum,
		Downloads: resp.Downloads,
	}
	if resp.Retirement != nil {
		info.Retired = &hexpm.RetirementStatus{
			Reason:  parseRetirementReason(resp.Retirement.Reason),
			Message: resp.Retirement.Message,
		}
	}
	if len(resp.Requirements) > 0 {
		info.Requirements = make(map[string]RequirementInfo, len(resp.Requirements))
		for dep, req := range resp.Requirements {
			info.Requirements[dep] = RequirementInfo{
				Requirement: req.Requirement,
				Optional:    req.Optional,
				App:         req.App,
			}
		}
	}
	return info, nil
}

// Retire marks a release retired. Requires an API key.
func (c *Client) Retire(ctx context.Context, name, version string, reason hexpm.RetirementReason, message string) error {
	url := fmt.Sprintf("%s/packages/%s/releases/%s/retire", c.repo.APIURL, name, version)
	body, err := json.Marshal(map[string]string{
		"reason":  reason.String(),
		"message": message,
	})
	if err != nil {
		return err
	}
	_, err = c.doOnce(ctx, http.MethodPost, url, body, "application/json")
	return err
}

// Unretire removes a release's retirement. Requires an API key.
func (c *Client) Unretire(ctx context.Context, name, version string) error {
	url := fmt.Sprintf("%s/packages/%s/releases/%s/retire", c.repo.APIURL, name, version)
	_, err := c.doOnce(ctx, http.MethodDelete, url, nil, "")
	return err
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func parseRetirementReason(s string) hexpm.RetirementReason {
	switch s {
	case "invalid":
		return hexpm.RetiredInvalid
	case "security":
		return hexpm.RetiredSecurity
	case "deprecated":
		return hexpm.RetiredDeprecated
	case "renamed":
		return hexpm.RetiredRenamed
	default:
		return hexpm.RetiredOther
	}
}
