// Package scm fetches pull requests and their diffs from GitHub.
package scm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"devhelper/internal/logging"
)

var prURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

// PRRef identifies one pull request.
type PRRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// ParsePRURL extracts owner, repo and number from a GitHub pull request URL.
func ParsePRURL(raw string) (PRRef, bool) {
	m := prURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return PRRef{}, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return PRRef{}, false
	}
	return PRRef{Owner: m[1], Repo: m[2], Number: n, URL: raw}, true
}

// File is one changed file of a pull request.
type File struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// PullRequest is a pull request with its changed files.
type PullRequest struct {
	PRRef
	Title string
	Body  string
	Files []File
}

// Client wraps the GitHub REST API.
type Client struct {
	gh *github.Client
}

// Config holds configuration for the GitHub client.
type Config struct {
	Token   string
	BaseURL string // GitHub Enterprise API root; empty for api.github.com
	Timeout time.Duration
}

// NewClient creates a GitHub client. An empty token yields an anonymous
// client subject to the public rate limit.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	gh := github.NewClient(&http.Client{Timeout: cfg.Timeout})
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

// PullRequest fetches a pull request and every changed file.
func (c *Client) PullRequest(ctx context.Context, ref PRRef) (*PullRequest, error) {
	start := time.Now()
	logging.SCMDebug("GET %s/%s#%d", ref.Owner, ref.Repo, ref.Number)
	pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}

	out := &PullRequest{
		PRRef: ref,
		Title: pr.GetTitle(),
		Body:  pr.GetBody(),
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of PR %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
		}
		for _, f := range files {
			out.Files = append(out.Files, File{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.SCM("Fetched %s/%s#%d (%d files) in %v", ref.Owner, ref.Repo, ref.Number, len(out.Files), time.Since(start))
	return out, nil
}

// Changes renders the files as the diff text handed to the reviewer.
func (pr *PullRequest) Changes() string {
	parts := make([]string, 0, len(pr.Files))
	for _, f := range pr.Files {
		parts = append(parts, fmt.Sprintf("File: %s\nChanges: +%d -%d\n%s", f.Filename, f.Additions, f.Deletions, f.Patch))
	}
	return strings.Join(parts, "\n\n")
}
