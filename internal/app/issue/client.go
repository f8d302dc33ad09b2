/*
Package issue is the client for the community hot-issue board.

Every call is authenticated by the session cookies alone. Edits and deletes are
admin-only, and the server decides who is an admin. No identity header is ever sent.
*/
package issue

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// BasePath is the issue board collection. Single issues live under BasePath + id.
const BasePath = "/api/issues/"

// Issue is one board post.
type Issue struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	Writer    string `json:"writer,omitempty"`
	Date      string `json:"date,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Update is the editable part of an issue.
type Update struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Normalize trims both fields and rejects blank ones.
func (u Update) Normalize() (Update, error) {
	u.Title = strings.TrimSpace(u.Title)
	u.Content = strings.TrimSpace(u.Content)
	if u.Title == "" || u.Content == "" {
		return u, errs.NewError(errs.ErrInvalidParams).WithMessage("Title and content are both required.")
	}
	return u, nil
}

// Doer sends a request. *authhttp.Client implements it.
type Doer interface {
	Do(ctx context.Context, req authhttp.Request) (*authhttp.Response, error)
}

// Client calls the issue board.
type Client struct {
	http   Doer
	logger zerolog.Logger
}

// NewClient returns an issue board client over h.
func NewClient(h Doer) *Client {
	return &Client{http: h, logger: logx.Component("issue_client")}
}

// List returns every issue, newest first as the server orders them.
func (c *Client) List(ctx context.Context) ([]Issue, error) {
	resp, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodGet, Path: BasePath})
	if err != nil {
		return nil, err
	}
	issues := []Issue{}
	if err := resp.DecodeJSON(&issues); err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}
	return issues, nil
}

// Get returns one issue.
func (c *Client) Get(ctx context.Context, id int64) (*Issue, error) {
	resp, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodGet, Path: itemPath(id)})
	if err != nil {
		return nil, mapNotFound(err)
	}
	var out Issue
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}
	return &out, nil
}

// Update replaces the title and content of an issue. A 403 means the member is not an
// admin and is returned as errs.ErrForbidden.
func (c *Client) Update(ctx context.Context, id int64, u Update) (*Issue, error) {
	u, err := u.Normalize()
	if err != nil {
		return nil, err
	}
	req, err := authhttp.JSONRequest(http.MethodPut, itemPath(id), u)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, mapNotFound(mapForbidden(err))
	}

	out := Issue{ID: id, Title: u.Title, Content: u.Content}
	if err := resp.DecodeJSON(&out); err != nil {
		c.logger.Warn().Err(err).Int64("issue_id", id).Msg("Update response was not an issue")
	}
	return &out, nil
}

// Delete removes an issue. Admin only, like Update.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodDelete, Path: itemPath(id)})
	if err != nil {
		return mapNotFound(mapForbidden(err))
	}
	c.logger.Info().Int64("issue_id", id).Msg("Issue deleted")
	return nil
}

func itemPath(id int64) string {
	return BasePath + strconv.FormatInt(id, 10)
}

func mapForbidden(err error) error {
	if authhttp.StatusCode(err) == http.StatusForbidden {
		return errs.Wrap(errs.ErrForbidden, err)
	}
	return err
}

func mapNotFound(err error) error {
	if authhttp.StatusCode(err) == http.StatusNotFound {
		return errs.Wrap(errs.ErrNotFound, err).WithMessage("Issue not found.")
	}
	return err
}
