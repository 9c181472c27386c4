// internal/github/endpoints.go
package github

import (
	"fmt"
	"net/url"

	"github-analytics-retriever/internal/model"
)

// PRState filters pull request listings.
type PRState int

const (
	PRStateAll PRState = iota
	PRStateOpen
	PRStateClosed
)

func (s PRState) String() string {
	switch s {
	case PRStateOpen:
		return "open"
	case PRStateClosed:
		return "closed"
	case PRStateAll:
		return "all"
	default:
		return fmt.Sprintf("PRState(%d)", int(s))
	}
}

// ListParams are the query parameters sent to listing endpoints.
type ListParams struct {
	State   string `url:"state,omitempty"`
	Page    int    `url:"page,omitempty"`
	PerPage int    `url:"per_page,omitempty"`
}

// Endpoint describes one API listing: the path relative to the API base URL,
// its default parameters, and what it lists (for logs and errors).
type Endpoint struct {
	Path       string
	Params     ListParams
	Resource   string
	Repository string
}

// WithPage returns a copy of e for the given page. Paging fields override the
// endpoint's defaults; other fields are kept.
func (e Endpoint) WithPage(page, perPage int) Endpoint {
	e.Params.Page = page
	e.Params.PerPage = perPage
	return e
}

// Catalog builds the endpoints of one organization.
type Catalog struct {
	Organization string
}

// NewCatalog returns a catalog for org.
func NewCatalog(org string) Catalog {
	return Catalog{Organization: org}
}

// Repositories lists the organization's repositories.
func (c Catalog) Repositories() Endpoint {
	return Endpoint{
		Path:     fmt.Sprintf("orgs/%s/repos", url.PathEscape(c.Organization)),
		Resource: "repositories",
	}
}

// Commits lists a repository's commits.
func (c Catalog) Commits(repo string) Endpoint {
	return c.repoEndpoint(repo, "commits", model.Commits)
}

// PullRequests lists a repository's pull requests in the given state.
func (c Catalog) PullRequests(repo string, state PRState) Endpoint {
	e := c.repoEndpoint(repo, "pulls", model.PullRequests)
	e.Params.State = state.String()
	return e
}

// ReviewComments lists a repository's pull request review comments.
func (c Catalog) ReviewComments(repo string) Endpoint {
	return c.repoEndpoint(repo, "pulls/comments", model.ReviewComments)
}

// DependabotAlerts lists a repository's dependabot alerts.
func (c Catalog) DependabotAlerts(repo string) Endpoint {
	return c.repoEndpoint(repo, "dependabot/alerts", model.DependabotAlerts)
}

// ForResource returns the listing endpoint for a resource kind. Pull requests
// are listed in every state.
func (c Catalog) ForResource(r model.Resource, repo string) (Endpoint, error) {
	switch r {
	case model.Commits:
		return c.Commits(repo), nil
	case model.PullRequests:
		return c.PullRequests(repo, PRStateAll), nil
	case model.ReviewComments:
		return c.ReviewComments(repo), nil
	case model.DependabotAlerts:
		return c.DependabotAlerts(repo), nil
	default:
		return Endpoint{}, fmt.Errorf("no endpoint for %v", r)
	}
}

func (c Catalog) repoEndpoint(repo, suffix string, r model.Resource) Endpoint {
	return Endpoint{
		Path:       fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(c.Organization), url.PathEscape(repo), suffix),
		Resource:   r.Dir(),
		Repository: repo,
	}
}
