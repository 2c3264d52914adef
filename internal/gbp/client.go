// Package gbp reads reviews from the Google Business Profile APIs.
package gbp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/log"
)

const (
	maxResponseBody = 4 << 20
	reviewPageSize  = "50"
	maxPages        = 100
)

// TokenSource hands out a usable access token for a tenant.
type TokenSource interface {
	AccessToken(ctx context.Context, tenantID string) federation.AccessResult
}

// Client fetches the reviews of the first business account a tenant
// connected, across all of its locations.
type Client struct {
	cfg    config.ReviewAPIConfig
	tokens TokenSource
	http   *http.Client
	policy *retry.Policy
	logger log.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithRetryPolicy(p *retry.Policy) Option {
	return func(cl *Client) { cl.policy = p }
}

func WithLogger(l log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(cfg config.ReviewAPIConfig, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   http.DefaultClient,
		policy: retry.NewExternalCallPolicy(retry.DefaultMaxRetries, retry.DefaultBaseDelay),
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type account struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName"`
}

type accountsPage struct {
	Accounts      []account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

type location struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type locationsPage struct {
	Locations     []location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
}

type reviewer struct {
	DisplayName string `json:"displayName"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type reviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime"`
}

type review struct {
	ReviewID    string       `json:"reviewId"`
	Name        string       `json:"name"`
	Reviewer    reviewer     `json:"reviewer"`
	StarRating  string       `json:"starRating"`
	Comment     string       `json:"comment"`
	CreateTime  string       `json:"createTime"`
	UpdateTime  string       `json:"updateTime"`
	ReviewReply *reviewReply `json:"reviewReply"`
}

type reviewsPage struct {
	Reviews       []review `json:"reviews"`
	NextPageToken string   `json:"nextPageToken"`
}

// FetchReviews returns every review visible to the tenant's connected
// account. A location whose reviews cannot be read is logged and skipped.
func (c *Client) FetchReviews(ctx context.Context, tenantID string) ([]domain.ExternalReview, error) {
	const op = "gbp.fetch_reviews"

	res := c.tokens.AccessToken(ctx, tenantID)
	switch res.State {
	case federation.TokenValid, federation.TokenRefreshed:
	case federation.TokenUnavailable:
		if res.Err == nil {
			return nil, serrors.ExternalProvider(op, 0, errors.New("access token unavailable"))
		}
		return nil, fmt.Errorf("%s: access token unavailable: %w", op, res.Err)
	default:
		return nil, serrors.NotConnected(op, tenantID)
	}
	token := res.Value

	acct, found, err := c.firstAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		c.logger.Warn(ctx, "no business accounts found", map[string]interface{}{"tenant_id": tenantID})
		return nil, nil
	}

	locations, err := c.locations(ctx, token, acct.Name)
	if err != nil {
		return nil, err
	}

	var all []domain.ExternalReview
	for _, loc := range locations {
		reviews, err := c.locationReviews(ctx, token, acct.Name, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn(ctx, "failed to fetch reviews for location", map[string]interface{}{
				"location": loc.Name,
				"error":    err.Error(),
			})
			continue
		}
		all = append(all, reviews...)
	}

	return all, nil
}

func (c *Client) firstAccount(ctx context.Context, token string) (account, bool, error) {
	var page accountsPage
	if err := c.get(ctx, "gbp.accounts", c.cfg.AccountsURL+"/accounts", token, &page); err != nil {
		return account{}, false, err
	}
	if len(page.Accounts) == 0 {
		return account{}, false, nil
	}
	return page.Accounts[0], true, nil
}

func (c *Client) locations(ctx context.Context, token, accountName string) ([]location, error) {
	var all []location
	var pages pageTokens
	pageToken := ""
	for {
		q := url.Values{"readMask": {"name,title"}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page locationsPage
		endpoint := fmt.Sprintf("%s/%s/locations?%s", c.cfg.BusinessInfoURL, accountName, q.Encode())
		if err := c.get(ctx, "gbp.locations", endpoint, token, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Locations...)

		if !pages.advance(ctx, c.logger, "gbp.locations", page.NextPageToken) {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// locationReviews pages through the v4 reviews endpoint, which addresses a
// location as accounts/{a}/locations/{l}.
func (c *Client) locationReviews(ctx context.Context, token, accountName string, loc location) ([]domain.ExternalReview, error) {
	name := loc.Name
	if !strings.HasPrefix(name, "accounts/") {
		name = accountName + "/" + name
	}

	var all []domain.ExternalReview
	var pages pageTokens
	pageToken := ""
	for {
		q := url.Values{"pageSize": {reviewPageSize}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page reviewsPage
		endpoint := fmt.Sprintf("%s/%s/reviews?%s", c.cfg.ReviewsURL, name, q.Encode())
		if err := c.get(ctx, "gbp.reviews", endpoint, token, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Reviews {
			all = append(all, r.toDomain())
		}

		if !pages.advance(ctx, c.logger, "gbp.reviews", page.NextPageToken) {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// pageTokens remembers the continuation tokens a listing has followed.
type pageTokens struct {
	seen map[string]struct{}
}

// advance reports whether the listing should request the page named by next.
// It stops at the last page, on a token the provider already returned, and
// after maxPages pages.
func (p *pageTokens) advance(ctx context.Context, logger log.Logger, op, next string) bool {
	if next == "" {
		return false
	}
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, repeated := p.seen[next]; repeated || len(p.seen)+1 >= maxPages {
		logger.Warn(ctx, "stopping pagination", map[string]interface{}{
			"op":         op,
			"pages":      len(p.seen) + 1,
			"repeated":   repeated,
			"page_token": next,
		})
		return false
	}
	p.seen[next] = struct{}{}
	return true
}

func (r review) toDomain() domain.ExternalReview {
	out := domain.ExternalReview{
		ReviewID:     r.ReviewID,
		Name:         r.Name,
		ReviewerName: r.Reviewer.DisplayName,
		StarRating:   r.StarRating,
		Comment:      r.Comment,
		CreateTime:   r.CreateTime,
		UpdateTime:   r.UpdateTime,
	}
	if r.Reviewer.IsAnonymous {
		out.ReviewerName = ""
	}
	if r.ReviewReply != nil {
		out.Reply = &domain.ReviewReply{
			Comment:    r.ReviewReply.Comment,
			UpdateTime: r.ReviewReply.UpdateTime,
		}
	}
	return out
}

// get performs an authenticated GET under the retry policy and decodes the
// JSON body into out.
func (c *Client) get(ctx context.Context, op, endpoint, token string, out any) error {
	return c.policy.Do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return serrors.Configuration(op, err.Error())
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return serrors.FromHTTPResponse(op, resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return serrors.Parse(op, err)
		}
		return nil
	})
}
