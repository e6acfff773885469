package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"squad-tracker/internal/config"

	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// Client talks to the squadEasy challenge API. Every call carries a bearer
// token supplied by the caller; token refresh lives in the auth package.
type Client struct {
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.APIBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	return doRequest[TokenResponse](ctx, c, fasthttp.MethodPost, "/api/3.0/auth/login", "", nil, body)
}

// RefreshToken trades an expiring token pair for a fresh one. The refresh
// token rides in its own header, the access token in the usual bearer slot.
func (c *Client) RefreshToken(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	headers := map[string]string{"refresh-token": refreshToken}
	return doRequest[TokenResponse](ctx, c, fasthttp.MethodPost, "/api/3.0/auth/refresh-token", accessToken, headers, nil)
}

func (c *Client) GetMyUser(ctx context.Context, token string) (*UserResponse, error) {
	return doRequest[UserResponse](ctx, c, fasthttp.MethodGet, "/api/2.0/my/user", token, nil, nil)
}

func (c *Client) GetMyTeam(ctx context.Context, token string) (*TeamResponse, error) {
	return doRequest[TeamResponse](ctx, c, fasthttp.MethodGet, "/api/2.0/my/team", token, nil, nil)
}

func (c *Client) GetTeam(ctx context.Context, token, teamID string) (*TeamResponse, error) {
	path := fmt.Sprintf("/api/2.0/teams/%s", url.PathEscape(teamID))
	return doRequest[TeamResponse](ctx, c, fasthttp.MethodGet, path, token, nil, nil)
}

func (c *Client) GetSeasonRanking(ctx context.Context, token string) (*SeasonRankingResponse, error) {
	return doRequest[SeasonRankingResponse](ctx, c, fasthttp.MethodGet, "/api/2.0/my/ranking/season", token, nil, nil)
}

func (c *Client) GetUserStatistics(ctx context.Context, token, userID string) (*UserStatisticsResponse, error) {
	path := fmt.Sprintf("/api/2.0/users/%s/statistics", url.PathEscape(userID))
	return doRequest[UserStatisticsResponse](ctx, c, fasthttp.MethodGet, path, token, nil, nil)
}

func (c *Client) GetMyChallenge(ctx context.Context, token string) (*ChallengeResponse, error) {
	return doRequest[ChallengeResponse](ctx, c, fasthttp.MethodGet, "/api/3.0/my/challenge", token, nil, nil)
}

// GetSocialPosts returns a feed page. An empty sincePostID yields the newest
// page; otherwise the page after the given post, going back in time.
func (c *Client) GetSocialPosts(ctx context.Context, token, sincePostID string) ([]SocialPost, error) {
	path := "/api/3.0/social/posts"
	if sincePostID != "" {
		path += "?sincePostId=" + url.QueryEscape(sincePostID)
	}
	posts, err := doRequest[[]SocialPost](ctx, c, fasthttp.MethodGet, path, token, nil, nil)
	if err != nil {
		return nil, err
	}
	return *posts, nil
}

func (c *Client) LikePost(ctx context.Context, token, postID string) error {
	path := fmt.Sprintf("/api/3.0/social/posts/%s/like", url.PathEscape(postID))
	_, err := doRequest[json.RawMessage](ctx, c, fasthttp.MethodPut, path, token, nil, nil)
	return err
}

func (c *Client) BoostUser(ctx context.Context, token, userID string) error {
	path := fmt.Sprintf("/api/2.0/users/%s/boost", url.PathEscape(userID))
	_, err := doRequest[json.RawMessage](ctx, c, fasthttp.MethodPost, path, token, nil, nil)
	return err
}

// APIError is a non-2xx vendor response. Server-side statuses are retried
// with backoff inside doRequest; everything else surfaces immediately.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

func doRequest[T any](ctx context.Context, client *Client, method, path, token string, headers map[string]string, body any) (*T, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	var result T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(client.baseURL + path)
		req.Header.SetMethod(method)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if encoded != nil {
			req.Header.SetContentType("application/json")
			req.SetBody(encoded)
		}

		var err error
		if deadline, ok := ctx.Deadline(); ok {
			err = client.client.DoDeadline(req, resp, deadline)
		} else {
			err = client.client.Do(req, resp)
		}
		if err != nil {
			return retry.RetryableError(err)
		}

		status := resp.StatusCode()
		if status >= fasthttp.StatusInternalServerError || status == fasthttp.StatusTooManyRequests {
			return retry.RetryableError(&APIError{StatusCode: status, Body: string(resp.Body())})
		}
		if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
			return &APIError{StatusCode: status, Body: string(resp.Body())}
		}

		if len(resp.Body()) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
