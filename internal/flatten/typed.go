package flatten

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/go-github/v62/github"
)

func commitRow(item json.RawMessage) ([]string, error) {
	var c github.RepositoryCommit
	if err := json.Unmarshal(item, &c); err != nil {
		return nil, err
	}
	return []string{
		c.GetSHA(),
		c.GetCommit().GetMessage(),
		timestampValue(c.GetCommit().GetAuthor().GetDate()),
		// Commits by unregistered authors carry no user object.
		c.GetAuthor().GetLogin(),
		c.GetCommitter().GetLogin(),
	}, nil
}

func pullRequestRow(item json.RawMessage) ([]string, error) {
	var pr github.PullRequest
	if err := json.Unmarshal(item, &pr); err != nil {
		return nil, err
	}
	return []string{
		number(pr.ID),
		number(pr.Number),
		text(pr.Title),
		text(pr.State),
		timestamp(pr.CreatedAt),
		timestamp(pr.UpdatedAt),
		timestamp(pr.ClosedAt),
		timestamp(pr.MergedAt),
		pr.GetUser().GetLogin(),
		pr.GetAssignee().GetLogin(),
		logins(pr.RequestedReviewers),
	}, nil
}

func reviewCommentRow(item json.RawMessage) ([]string, error) {
	var c github.PullRequestComment
	if err := json.Unmarshal(item, &c); err != nil {
		return nil, err
	}
	return []string{
		number(c.ID),
		c.GetUser().GetLogin(),
		text(c.Body),
		timestamp(c.CreatedAt),
		timestamp(c.UpdatedAt),
	}, nil
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func number[T int | int64](n *T) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(int64(*n), 10)
}

func timestamp(t *github.Timestamp) string {
	if t == nil {
		return ""
	}
	return timestampValue(*t)
}

func timestampValue(t github.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// logins renders reviewers as a JSON array of logins. A missing or empty
// list is an empty cell.
func logins(users []*github.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		if u.GetLogin() != "" {
			names = append(names, u.GetLogin())
		}
	}
	if len(names) == 0 {
		return ""
	}
	out, _ := json.Marshal(names)
	return string(out)
}
