package githubclt

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/focus-spec/boardrelay/internal/relayerr"
)

// DefaultQueueField is the project field that queue counts are computed
// over when no field is configured.
const DefaultQueueField = "Status"

const itemsPerPage = 100

// ContentRequest describes which objects to resolve in one enrichment query.
type ContentRequest struct {
	// ContentNodeID is the node id of the issue or pull request.
	ContentNodeID string
	// ProjectNodeID is the node id of the ProjectV2 the item belongs to.
	// When empty, no project metadata is fetched.
	ProjectNodeID string
	// QueueField is the single-select field that QueueStates refer to,
	// DefaultQueueField when empty.
	QueueField string
	// QueueStates lists the field values to count open pull-request items
	// for. When empty, no counts are computed.
	QueueStates []string
}

// EnrichedContent is the metadata of the issue or pull request an edited
// project item wraps.
type EnrichedContent struct {
	Number int
	Title  string
	URL    string
	Author string
	// Project is nil when no project node id was requested or the project
	// could not be resolved.
	Project *Project
}

// Project is the metadata of a ProjectV2.
type Project struct {
	Number      int
	Title       string
	QueueCounts []QueueCount
}

// QueueCount is the number of open pull-request items whose queue field
// matches State.
type QueueCount struct {
	State string
	Count int
}

type contentFields struct {
	Number int
	Title  string
	URL    string `graphql:"url"`
	Author struct {
		Login string
	}
}

type contentNode struct {
	PullRequest contentFields `graphql:"... on PullRequest"`
	Issue       contentFields `graphql:"... on Issue"`
}

type projectItemNode struct {
	Content struct {
		PullRequest struct {
			State string
		} `graphql:"... on PullRequest"`
	}
	FieldValue struct {
		SingleSelect struct {
			Name string
		} `graphql:"... on ProjectV2ItemFieldSingleSelectValue"`
	} `graphql:"fieldValue: fieldValueByName(name: $queueField)"`
}

// FetchContent resolves the content node, and optionally the project node,
// in a single GraphQL query.
// When queue states are requested and the project has more than one page of
// items, further pages are fetched until all items were counted.
// A content node id that does not resolve yields a relayerr.NotFoundError.
func (clt *Client) FetchContent(ctx context.Context, req *ContentRequest) (*EnrichedContent, error) {
	if req.ContentNodeID == "" {
		return nil, fmt.Errorf("content node id is empty")
	}

	if req.ProjectNodeID == "" {
		return clt.fetchContentOnly(ctx, req.ContentNodeID)
	}

	if len(req.QueueStates) == 0 {
		return clt.fetchContentAndProject(ctx, req)
	}

	return clt.fetchContentAndQueueCounts(ctx, req)
}

func (clt *Client) fetchContentOnly(ctx context.Context, contentNodeID string) (*EnrichedContent, error) {
	var q struct {
		Node contentNode `graphql:"node(id: $contentID)"`
	}

	vars := map[string]any{
		"contentID": githubv4.ID(contentNodeID),
	}

	if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
		return nil, err
	}

	return newEnrichedContent(&q.Node, contentNodeID)
}

// fetchContentAndProject resolves the content and project metadata without
// selecting the items connection. Requesting items(first: 0) is not an
// option, on a non-empty project such a page reports hasNextPage without a
// cursor to continue from.
func (clt *Client) fetchContentAndProject(ctx context.Context, req *ContentRequest) (*EnrichedContent, error) {
	var q struct {
		Content contentNode `graphql:"content: node(id: $contentID)"`
		Project struct {
			ProjectV2 struct {
				Number int
				Title  string
			} `graphql:"... on ProjectV2"`
		} `graphql:"project: node(id: $projectID)"`
	}

	vars := map[string]any{
		"contentID": githubv4.ID(req.ContentNodeID),
		"projectID": githubv4.ID(req.ProjectNodeID),
	}

	if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
		return nil, err
	}

	result, err := newEnrichedContent(&q.Content, req.ContentNodeID)
	if err != nil {
		return nil, err
	}

	result.Project = newProject(q.Project.ProjectV2.Number, q.Project.ProjectV2.Title)

	return result, nil
}

func (clt *Client) fetchContentAndQueueCounts(ctx context.Context, req *ContentRequest) (*EnrichedContent, error) {
	var q struct {
		Content contentNode `graphql:"content: node(id: $contentID)"`
		Project struct {
			ProjectV2 struct {
				Number int
				Title  string
				Items  struct {
					PageInfo struct {
						EndCursor   string
						HasNextPage bool
					}
					Nodes []projectItemNode
				} `graphql:"items(first: $itemsFirst, after: $itemsAfter)"`
			} `graphql:"... on ProjectV2"`
		} `graphql:"project: node(id: $projectID)"`
	}

	queueField := req.QueueField
	if queueField == "" {
		queueField = DefaultQueueField
	}

	vars := map[string]any{
		"contentID":  githubv4.ID(req.ContentNodeID),
		"projectID":  githubv4.ID(req.ProjectNodeID),
		"queueField": githubv4.String(queueField),
		"itemsFirst": githubv4.Int(itemsPerPage),
		"itemsAfter": (*githubv4.String)(nil),
	}

	counts := make(map[string]int, len(req.QueueStates))

	var result *EnrichedContent

	for {
		if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
			return nil, err
		}

		if result == nil {
			var err error

			result, err = newEnrichedContent(&q.Content, req.ContentNodeID)
			if err != nil {
				return nil, err
			}

			result.Project = newProject(q.Project.ProjectV2.Number, q.Project.ProjectV2.Title)
		}

		if result.Project == nil {
			return result, nil
		}

		for _, item := range q.Project.ProjectV2.Items.Nodes {
			if item.Content.PullRequest.State != "OPEN" {
				continue
			}

			counts[item.FieldValue.SingleSelect.Name]++
		}

		pageInfo := q.Project.ProjectV2.Items.PageInfo
		if !pageInfo.HasNextPage {
			break
		}

		if pageInfo.EndCursor == "" {
			return nil, fmt.Errorf("retrieving all project items failed, HasNextPage is true but EndCursor is empty")
		}

		vars["itemsAfter"] = githubv4.String(pageInfo.EndCursor)
	}

	for _, state := range req.QueueStates {
		result.Project.QueueCounts = append(result.Project.QueueCounts, QueueCount{
			State: state,
			Count: counts[state],
		})
	}

	return result, nil
}

// newProject returns nil when the project node id did not resolve, an
// unresolvable node decodes into an empty ProjectV2 fragment.
func newProject(number int, title string) *Project {
	if number == 0 && title == "" {
		return nil
	}

	return &Project{
		Number: number,
		Title:  title,
	}
}

func newEnrichedContent(node *contentNode, contentNodeID string) (*EnrichedContent, error) {
	fields := node.PullRequest
	if fields.URL == "" {
		fields = node.Issue
	}

	// an unresolvable node id yields a null node, which decodes into
	// empty union fields
	if fields.URL == "" && fields.Title == "" && fields.Number == 0 {
		return nil, &relayerr.NotFoundError{NodeID: contentNodeID}
	}

	return &EnrichedContent{
		Number: fields.Number,
		Title:  fields.Title,
		URL:    fields.URL,
		Author: fields.Author.Login,
	}, nil
}
