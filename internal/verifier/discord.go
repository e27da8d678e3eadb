package verifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beatwise/internal/config"
	"beatwise/lib/sl"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Discord asks the guild members endpoint whether a user has joined the
// configured server. 200 means member, 404 means not a member.
type Discord struct {
	baseURL  string
	token    string
	guildID  string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
	log      *slog.Logger
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

func NewDiscord(conf config.DiscordConfig, log *slog.Logger) *Discord {
	retry := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(shouldRetry).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(2).
		WithJitterFactor(0.1).
		Build()
	return &Discord{
		baseURL:  strings.TrimRight(conf.BaseURL, "/"),
		token:    conf.BotToken,
		guildID:  conf.GuildID,
		client:   &http.Client{Timeout: 10 * time.Second},
		executor: failsafe.With[*http.Response](retry),
		log:      log.With(sl.Module("discord")),
	}
}

func (d *Discord) VerifyMembership(ctx context.Context, platformUserID string) (bool, error) {
	platformUserID = strings.TrimSpace(platformUserID)
	if platformUserID == "" {
		return false, nil
	}
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", d.baseURL, url.PathEscape(d.guildID), url.PathEscape(platformUserID))

	resp, err := d.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bot "+d.token)
		resp, err := d.client.Do(req)
		if shouldRetry(resp, err) && resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return resp, err
	})
	if err != nil {
		d.log.With(slog.String("user", platformUserID)).Warn("guild member request", sl.Err(err))
		return false, fmt.Errorf("discord guild member: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, fmt.Errorf("discord guild member: unexpected status %d", resp.StatusCode)
}
