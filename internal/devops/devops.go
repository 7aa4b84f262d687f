// Package devops wraps the work-tracking service: work items, builds, and
// pull requests.
package devops

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the tracked object does not exist.
var ErrNotFound = errors.New("not found")

// WorkItem is the projection of a tracked work item used by agents.
type WorkItem struct {
	ID          int               `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	State       string            `json:"state"`
	Fields      map[string]string `json:"fields,omitempty"`
	URL         string            `json:"url,omitempty"`
}

// Build is the projection of a pipeline build.
type Build struct {
	ID          int    `json:"id"`
	BuildNumber string `json:"build_number"`
	Status      string `json:"status"` // notStarted, inProgress, completed
	Result      string `json:"result"` // succeeded, failed, canceled
	Definition  string `json:"definition"`
	Branch      string `json:"branch"`
	URL         string `json:"url,omitempty"`
}

// PullRequest is the projection of a created pull request.
type PullRequest struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url,omitempty"`
}

// Client is the work-tracking contract agents depend on.
type Client interface {
	GetWorkItem(ctx context.Context, id int) (*WorkItem, error)
	CreateWorkItem(ctx context.Context, itemType, title, description string, fields map[string]string) (*WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int, fields map[string]string) (*WorkItem, error)
	LinkWorkItems(ctx context.Context, sourceID, targetID int, linkType string) error

	// SplitIntoSubitems creates count child items under the parent and
	// links each back to it.
	SplitIntoSubitems(ctx context.Context, parentID, count int) ([]*WorkItem, error)

	GetBuild(ctx context.Context, buildID int) (*Build, error)
	QueueBuild(ctx context.Context, definitionName, branch string, params map[string]string) (*Build, error)

	CreatePullRequest(ctx context.Context, repoID, sourceBranch, targetBranch, title, description string) (*PullRequest, error)
}
