package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const githubGraphQLURL = "https://api.github.com/graphql"

// GitHubClient fetches per-day contribution counts through the GraphQL
// contributionsCollection API. A shared default token backs users whose own
// OAuth token is missing or stopped working.
type GitHubClient struct {
	apiURL       string
	httpClient   *http.Client
	defaultToken string
}

// NewGitHubClient creates a client against the public GitHub GraphQL endpoint.
func NewGitHubClient(defaultToken string) *GitHubClient {
	return NewGitHubClientWithURL(githubGraphQLURL, defaultToken)
}

// NewGitHubClientWithURL creates a client against a custom endpoint, used in tests.
func NewGitHubClientWithURL(apiURL, defaultToken string) *GitHubClient {
	return &GitHubClient{
		apiURL:       apiURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		defaultToken: defaultToken,
	}
}

type graphQLQuery struct {
	Query     string           `json:"query"`
	Variables graphQLVariables `json:"variables"`
}

type graphQLVariables struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

type contributionsResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection *struct {
				ContributionCalendar *struct {
					Weeks []struct {
						ContributionDays []struct {
							Date              string `json:"date"`
							ContributionCount int    `json:"contributionCount"`
						} `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"errors"`
}

const contributionsQuery = `
	query ($name: String!, $from: DateTime!, $to: DateTime!) {
		user(login: $name) {
			contributionsCollection(from: $from, to: $to) {
				contributionCalendar {
					weeks {
						contributionDays {
							date
							contributionCount
						}
					}
				}
			}
		}
	}
`

// Contributions returns roughly the last year of contribution days for a
// user, newest last. Results are cached in Redis for a few minutes since the
// dashboard polls this aggressively. An unknown username yields an empty
// slice, not an error.
func (c *GitHubClient) Contributions(ctx context.Context, username, token string) ([]ContributionDay, error) {
	cacheKey := calendarCacheKey(username)
	var cached []ContributionDay
	if CacheGetJSON(cacheKey, &cached) {
		return cached, nil
	}

	to := time.Now()
	from := to.AddDate(-1, 0, 0)
	days, err := c.fetchCalendar(ctx, username, token, from, to)
	if err != nil {
		return nil, err
	}

	CacheSetJSON(cacheKey, days, 5*time.Minute)
	return days, nil
}

// InvalidateCalendar drops the cached calendar for a user so the next fetch
// hits the API. Called before a forced sync.
func (c *GitHubClient) InvalidateCalendar(username string) {
	InvalidateByPrefix(calendarCacheKey(username))
}

func calendarCacheKey(username string) string {
	return "contrib:calendar:" + username
}

// HasContributedToday reports whether the user has any contribution on
// today's date in the given IANA timezone. It queries a two-day window
// directly, skipping the calendar cache so a commit made a minute ago counts.
func (c *GitHubClient) HasContributedToday(ctx context.Context, username, token, timezone string) (bool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	now := time.Now().In(loc)
	today := now.Format(DateLayout)

	days, err := c.fetchCalendar(ctx, username, token, now.AddDate(0, 0, -2), now)
	if err != nil {
		return false, err
	}

	// last value wins if the window straddles a week boundary twice
	count := 0
	for _, d := range days {
		if d.Date == today {
			count = d.Count
		}
	}
	return count > 0, nil
}

func (c *GitHubClient) fetchCalendar(ctx context.Context, username, token string, from, to time.Time) ([]ContributionDay, error) {
	days, err := c.query(ctx, username, pickToken(token, c.defaultToken), from, to)
	if err != nil && token != "" && c.defaultToken != "" && isAuthError(err) {
		// The user's stored OAuth token may have been revoked; retry once
		// with the shared default token before giving up.
		if Sugar != nil {
			Sugar.Warnf("github token for %s rejected, retrying with default token", username)
		}
		days, err = c.query(ctx, username, c.defaultToken, from, to)
	}
	return days, err
}

func (c *GitHubClient) query(ctx context.Context, username, token string, from, to time.Time) ([]ContributionDay, error) {
	body, err := json.Marshal(graphQLQuery{
		Query: contributionsQuery,
		Variables: graphQLVariables{
			Name: username,
			From: from.Format(time.RFC3339),
			To:   to.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github graphql request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read github response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed contributionsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode github response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		// NOT_FOUND means the login doesn't exist; treat as zero activity
		if parsed.Errors[0].Type == "NOT_FOUND" {
			return []ContributionDay{}, nil
		}
		return nil, fmt.Errorf("github graphql error: %s", parsed.Errors[0].Message)
	}

	u := parsed.Data.User
	if u == nil || u.ContributionsCollection == nil || u.ContributionsCollection.ContributionCalendar == nil {
		return []ContributionDay{}, nil
	}

	var days []ContributionDay
	for _, week := range u.ContributionsCollection.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			days = append(days, ContributionDay{Date: day.Date, Count: day.ContributionCount})
		}
	}
	return days, nil
}

func pickToken(userToken, defaultToken string) string {
	if userToken != "" {
		return userToken
	}
	return defaultToken
}

func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status 401") || strings.Contains(msg, "Bad credentials")
}
