package devops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "7.1"

// AzureClient is a thin Azure DevOps REST client.
type AzureClient struct {
	orgURL  string
	project string
	auth    string
	http    *http.Client
}

// NewAzureClient creates a client for one organization and project,
// authenticated with a personal access token.
func NewAzureClient(orgURL, project, pat string) (*AzureClient, error) {
	if orgURL == "" || project == "" || pat == "" {
		return nil, fmt.Errorf("azure devops: org url, project, and PAT are required")
	}
	return &AzureClient{
		orgURL:  strings.TrimRight(orgURL, "/"),
		project: project,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat)),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *AzureClient) do(ctx context.Context, method, url, contentType string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, b)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type workItemResponse struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
	URL    string         `json:"url"`
}

func (w workItemResponse) toWorkItem() *WorkItem {
	str := func(key string) string {
		if v, ok := w.Fields[key].(string); ok {
			return v
		}
		return ""
	}
	return &WorkItem{
		ID:          w.ID,
		Type:        str("System.WorkItemType"),
		Title:       str("System.Title"),
		Description: str("System.Description"),
		State:       str("System.State"),
		URL:         w.URL,
	}
}

func (c *AzureClient) GetWorkItem(ctx context.Context, id int) (*WorkItem, error) {
	url := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s", c.orgURL, c.project, id, apiVersion)
	var out workItemResponse
	if err := c.do(ctx, http.MethodGet, url, "", nil, &out); err != nil {
		return nil, err
	}
	return out.toWorkItem(), nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (c *AzureClient) CreateWorkItem(ctx context.Context, itemType, title, description string, fields map[string]string) (*WorkItem, error) {
	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: title},
		{Op: "add", Path: "/fields/System.Description", Value: description},
	}
	for k, v := range fields {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + k, Value: v})
	}

	url := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s", c.orgURL, c.project, itemType, apiVersion)
	var out workItemResponse
	if err := c.do(ctx, http.MethodPost, url, "application/json-patch+json", ops, &out); err != nil {
		return nil, err
	}
	return out.toWorkItem(), nil
}

func (c *AzureClient) UpdateWorkItem(ctx context.Context, id int, fields map[string]string) (*WorkItem, error) {
	var ops []patchOp
	for k, v := range fields {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + k, Value: v})
	}

	url := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s", c.orgURL, c.project, id, apiVersion)
	var out workItemResponse
	if err := c.do(ctx, http.MethodPatch, url, "application/json-patch+json", ops, &out); err != nil {
		return nil, err
	}
	return out.toWorkItem(), nil
}

func (c *AzureClient) LinkWorkItems(ctx context.Context, sourceID, targetID int, linkType string) error {
	ops := []patchOp{{
		Op:   "add",
		Path: "/relations/-",
		Value: map[string]any{
			"rel": linkType,
			"url": fmt.Sprintf("%s/%s/_apis/wit/workitems/%d", c.orgURL, c.project, targetID),
		},
	}}

	url := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s", c.orgURL, c.project, sourceID, apiVersion)
	return c.do(ctx, http.MethodPatch, url, "application/json-patch+json", ops, nil)
}

func (c *AzureClient) SplitIntoSubitems(ctx context.Context, parentID, count int) ([]*WorkItem, error) {
	parent, err := c.GetWorkItem(ctx, parentID)
	if err != nil {
		return nil, err
	}

	var children []*WorkItem
	for i := 1; i <= count; i++ {
		title := fmt.Sprintf("%s (part %d of %d)", parent.Title, i, count)
		child, err := c.CreateWorkItem(ctx, "User Story", title, parent.Description, nil)
		if err != nil {
			return children, err
		}
		if err := c.LinkWorkItems(ctx, child.ID, parentID, "System.LinkTypes.Hierarchy-Reverse"); err != nil {
			return children, err
		}
		children = append(children, child)
	}
	return children, nil
}

type buildResponse struct {
	ID          int    `json:"id"`
	BuildNumber string `json:"buildNumber"`
	Status      string `json:"status"`
	Result      string `json:"result"`
	Definition  struct {
		Name string `json:"name"`
	} `json:"definition"`
	SourceBranch string `json:"sourceBranch"`
	URL          string `json:"url"`
}

func (b buildResponse) toBuild() *Build {
	return &Build{
		ID:          b.ID,
		BuildNumber: b.BuildNumber,
		Status:      b.Status,
		Result:      b.Result,
		Definition:  b.Definition.Name,
		Branch:      b.SourceBranch,
		URL:         b.URL,
	}
}

func (c *AzureClient) GetBuild(ctx context.Context, buildID int) (*Build, error) {
	url := fmt.Sprintf("%s/%s/_apis/build/builds/%d?api-version=%s", c.orgURL, c.project, buildID, apiVersion)
	var out buildResponse
	if err := c.do(ctx, http.MethodGet, url, "", nil, &out); err != nil {
		return nil, err
	}
	return out.toBuild(), nil
}

func (c *AzureClient) QueueBuild(ctx context.Context, definitionName, branch string, params map[string]string) (*Build, error) {
	defID, err := c.findDefinition(ctx, definitionName)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"definition":   map[string]int{"id": defID},
		"sourceBranch": branch,
	}
	if len(params) > 0 {
		b, _ := json.Marshal(params)
		body["parameters"] = string(b)
	}

	url := fmt.Sprintf("%s/%s/_apis/build/builds?api-version=%s", c.orgURL, c.project, apiVersion)
	var out buildResponse
	if err := c.do(ctx, http.MethodPost, url, "application/json", body, &out); err != nil {
		return nil, err
	}
	return out.toBuild(), nil
}

func (c *AzureClient) findDefinition(ctx context.Context, name string) (int, error) {
	url := fmt.Sprintf("%s/%s/_apis/build/definitions?name=%s&api-version=%s", c.orgURL, c.project, name, apiVersion)
	var out struct {
		Value []struct {
			ID int `json:"id"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, url, "", nil, &out); err != nil {
		return 0, err
	}
	if len(out.Value) == 0 {
		return 0, fmt.Errorf("build definition %q: %w", name, ErrNotFound)
	}
	return out.Value[0].ID, nil
}

func (c *AzureClient) CreatePullRequest(ctx context.Context, repoID, sourceBranch, targetBranch, title, description string) (*PullRequest, error) {
	body := map[string]any{
		"sourceRefName": "refs/heads/" + sourceBranch,
		"targetRefName": "refs/heads/" + targetBranch,
		"title":         title,
		"description":   description,
	}

	url := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullrequests?api-version=%s", c.orgURL, c.project, repoID, apiVersion)
	var out struct {
		PullRequestID int    `json:"pullRequestId"`
		Title         string `json:"title"`
		URL           string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, url, "application/json", body, &out); err != nil {
		return nil, err
	}
	return &PullRequest{
		ID:           out.PullRequestID,
		Title:        out.Title,
		SourceBranch: sourceBranch,
		TargetBranch: targetBranch,
		URL:          out.URL,
	}, nil
}
