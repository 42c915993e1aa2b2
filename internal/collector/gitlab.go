package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"glsearch/internal/domain"
	apperrors "glsearch/internal/errors"
	"glsearch/internal/retry"
)

const (
	perPage = 100

	// binarySniffLen bounds how many leading bytes are inspected for a NUL
	// byte when deciding whether a blob is binary
	binarySniffLen = 8192

	// snippetRadius is the number of bytes kept on each side of a match
	snippetRadius = 100
)

// gitlabCollector implements Collector using the GitLab API
type gitlabCollector struct {
	client      *gitlab.Client
	rateLimiter RateLimiter
	policy      retry.Policy
	logger      *zap.Logger
}

// NewGitLabCollector creates a collector authenticated with a private token.
// baseURL selects the GitLab instance (https://gitlab.com for the hosted one).
func NewGitLabCollector(token, baseURL string, logger *zap.Logger) (Collector, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &gitlabCollector{
		client:      client,
		rateLimiter: NewRateLimiter(logger),
		policy:      retry.DefaultPolicy(apperrors.IsRetryable, logger),
		logger:      logger,
	}, nil
}

// ListGroupProjects walks the group hierarchy with an explicit worklist of
// group IDs, collecting each group's direct projects and pushing its
// subgroups. Projects are deduplicated by ID in first-seen order.
func (c *gitlabCollector) ListGroupProjects(ctx context.Context, groupPath string) ([]*domain.Project, error) {
	var all []*domain.Project
	seen := make(map[int]bool)

	worklist := []interface{}{groupPath}
	for len(worklist) > 0 {
		gid := worklist[0]
		worklist = worklist[1:]

		projects, err := c.listDirectProjects(ctx, gid)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects of group %v: %w", gid, err)
		}
		for _, p := range projects {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			all = append(all, p)
		}

		subgroups, err := c.listSubgroups(ctx, gid)
		if err != nil {
			return nil, fmt.Errorf("failed to list subgroups of group %v: %w", gid, err)
		}
		for _, g := range subgroups {
			worklist = append(worklist, g.ID)
		}
	}

	return all, nil
}

func (c *gitlabCollector) listDirectProjects(ctx context.Context, gid interface{}) ([]*domain.Project, error) {
	var all []*domain.Project
	opts := &gitlab.ListGroupProjectsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var (
			page []*gitlab.Project
			resp *gitlab.Response
		)
		err := retry.Do(ctx, c.policy, "list group projects", func(ctx context.Context) error {
			var err error
			page, resp, err = c.client.Groups.ListGroupProjects(gid, opts, gitlab.WithContext(ctx))
			return classify(err, resp)
		})
		if err != nil {
			return nil, err
		}

		c.updateRateLimitFromResponse(resp)

		for _, p := range page {
			all = append(all, &domain.Project{
				ID:                p.ID,
				Name:              p.Name,
				PathWithNamespace: p.PathWithNamespace,
				DefaultBranch:     p.DefaultBranch,
				WebURL:            p.WebURL,
				LastActivityAt:    p.LastActivityAt,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *gitlabCollector) listSubgroups(ctx context.Context, gid interface{}) ([]*domain.Group, error) {
	var all []*domain.Group
	opts := &gitlab.ListSubGroupsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var (
			page []*gitlab.Group
			resp *gitlab.Response
		)
		err := retry.Do(ctx, c.policy, "list subgroups", func(ctx context.Context) error {
			var err error
			page, resp, err = c.client.Groups.ListSubGroups(gid, opts, gitlab.WithContext(ctx))
			return classify(err, resp)
		})
		if err != nil {
			return nil, err
		}

		c.updateRateLimitFromResponse(resp)

		for _, g := range page {
			all = append(all, &domain.Group{
				ID:       g.ID,
				Name:     g.Name,
				FullPath: g.FullPath,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// Search resolves the branch, walks its tree in listing order, and reports
// the first blob containing the phrase. Failures become statuses, never
// errors, so the batch always gets one result per project.
func (c *gitlabCollector) Search(ctx context.Context, project *domain.Project, branch, phrase string) *domain.SearchResult {
	result := &domain.SearchResult{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Branch:      branch,
	}

	if err := c.getBranch(ctx, project.ID, branch); err != nil {
		if apperrors.IsNotFound(err) {
			result.Status = domain.StatusBranchMissing
			return result
		}
		c.logger.Error("failed to resolve branch",
			zap.String("project", project.Name),
			zap.String("branch", branch),
			zap.Error(err))
		result.Status = domain.StatusError
		result.Error = err.Error()
		return result
	}

	paths, err := c.listBlobs(ctx, project.ID, branch)
	if err != nil {
		c.logger.Error("failed to list repository tree",
			zap.String("project", project.Name),
			zap.String("branch", branch),
			zap.Error(err))
		result.Status = domain.StatusError
		result.Error = err.Error()
		return result
	}

	needle := []byte(phrase)
	for _, path := range paths {
		content, err := c.getRawFile(ctx, project.ID, path, branch)
		if err != nil {
			if apperrors.IsNotFound(err) {
				// File disappeared between tree listing and fetch
				continue
			}
			c.logger.Error("failed to fetch file content",
				zap.String("project", project.Name),
				zap.String("file", path),
				zap.Error(err))
			result.Status = domain.StatusError
			result.Error = err.Error()
			return result
		}

		if isBinary(content) {
			continue
		}

		if idx := bytes.Index(content, needle); idx >= 0 {
			result.Status = domain.StatusFound
			result.FilePath = path
			result.Snippet = makeSnippet(content, idx, len(needle))
			return result
		}
	}

	result.Status = domain.StatusNotFound
	return result
}

func (c *gitlabCollector) getBranch(ctx context.Context, projectID int, branch string) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	return retry.Do(ctx, c.policy, "get branch", func(ctx context.Context) error {
		_, resp, err := c.client.Branches.GetBranch(projectID, branch, gitlab.WithContext(ctx))
		c.updateRateLimitFromResponse(resp)
		return classify(err, resp)
	})
}

// listBlobs returns the paths of all blobs in the branch's tree, in the
// order the API lists them.
func (c *gitlabCollector) listBlobs(ctx context.Context, projectID int, ref string) ([]string, error) {
	var paths []string
	opts := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
		Ref:         gitlab.Ptr(ref),
		Recursive:   gitlab.Ptr(true),
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var (
			page []*gitlab.TreeNode
			resp *gitlab.Response
		)
		err := retry.Do(ctx, c.policy, "list repository tree", func(ctx context.Context) error {
			var err error
			page, resp, err = c.client.Repositories.ListTree(projectID, opts, gitlab.WithContext(ctx))
			return classify(err, resp)
		})
		if err != nil {
			return nil, err
		}

		c.updateRateLimitFromResponse(resp)

		for _, node := range page {
			if node.Type == "blob" {
				paths = append(paths, node.Path)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return paths, nil
}

func (c *gitlabCollector) getRawFile(ctx context.Context, projectID int, path, ref string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var content []byte
	err := retry.Do(ctx, c.policy, "get raw file", func(ctx context.Context) error {
		var (
			resp *gitlab.Response
			err  error
		)
		content, resp, err = c.client.RepositoryFiles.GetRawFile(projectID, path, &gitlab.GetRawFileOptions{
			Ref: gitlab.Ptr(ref),
		}, gitlab.WithContext(ctx))
		c.updateRateLimitFromResponse(resp)
		return classify(err, resp)
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// updateRateLimitFromResponse feeds the limiter from GitLab's rate headers
func (c *gitlabCollector) updateRateLimitFromResponse(resp *gitlab.Response) {
	if resp == nil {
		return
	}
	remaining, err := strconv.Atoi(resp.Header.Get("RateLimit-Remaining"))
	if err != nil {
		return
	}
	var reset time.Time
	if v, err := strconv.ParseInt(resp.Header.Get("RateLimit-Reset"), 10, 64); err == nil {
		reset = time.Unix(v, 0)
	}
	c.rateLimiter.UpdateLimit(remaining, reset)
}

// classify maps a client error and response to the error taxonomy that
// drives retry decisions
func classify(err error, resp *gitlab.Response) error {
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.NewBadResponseError("unexpected API response shape", err)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return apperrors.NewUnauthorizedError(err.Error())
		case resp.StatusCode == http.StatusNotFound:
			return apperrors.NewNotFoundError("resource")
		case resp.StatusCode == http.StatusTooManyRequests:
			return apperrors.NewRateLimitedError("API rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return apperrors.NewUnavailableError("API server error", err)
		}
	}

	// No usable response: timeouts, connection resets and the like
	return apperrors.NewUnavailableError("request failed", err)
}

// isBinary reports whether content looks binary (NUL byte in the prefix)
func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}

// makeSnippet returns a bounded excerpt around the match, with ellipses
// marking truncation. The match itself is always fully included.
func makeSnippet(content []byte, idx, matchLen int) string {
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + snippetRadius
	if end > len(content) {
		end = len(content)
	}

	snippet := string(content[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}
