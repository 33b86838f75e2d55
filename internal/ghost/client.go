package ghost

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/hpungsan/ghostmcp/internal/config"
	"github.com/hpungsan/ghostmcp/internal/errors"
)

const (
	HeaderAcceptVersion = "Accept-Version"
	HeaderAuthorization = "Authorization"

	adminPath = "/ghost/api/admin"
)

// Options configures a Client.
type Options struct {
	APIURL      string // site URL, without the /ghost/api/admin suffix
	AdminAPIKey string // "<id>:<hex secret>"
	APIVersion  string // Accept-Version header, e.g. v5.0
	Timeout     time.Duration
	RetryCount  int
	UserAgent   string
}

// Client talks to the Ghost Admin API.
type Client struct {
	http *req.Client
	key  adminKey
	now  func() time.Time
}

// New creates a Client. The key is parsed eagerly so a bad key fails before any request.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIURL) == "" {
		return nil, errors.NewInvalidRequest("api url is required")
	}
	key, err := parseAdminKey(opts.AdminAPIKey)
	if err != nil {
		return nil, err
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("ghostmcp (%s; %s)", runtime.GOOS, runtime.GOARCH)
	}

	c := &Client{key: key, now: time.Now}

	httpClient := req.C().
		SetBaseURL(strings.TrimRight(opts.APIURL, "/")+adminPath).
		SetUserAgent(userAgent).
		SetCommonErrorResult(&apiErrorBody{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
			token, err := c.key.sign(c.now())
			if err != nil {
				return fmt.Errorf("sign admin token: %w", err)
			}
			r.SetHeader(HeaderAuthorization, "Ghost "+token)
			return nil
		})

	if opts.APIVersion != "" {
		httpClient.SetCommonHeader(HeaderAcceptVersion, opts.APIVersion)
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	if opts.RetryCount > 0 {
		httpClient.SetCommonRetryCount(opts.RetryCount).
			SetCommonRetryBackoffInterval(500*time.Millisecond, 5*time.Second)
	}

	c.http = httpClient
	return c, nil
}

// NewFromConfig creates a Client from application config.
func NewFromConfig(cfg *config.Config, version string) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(Options{
		APIURL:      cfg.APIURL,
		AdminAPIKey: cfg.AdminAPIKey,
		APIVersion:  cfg.APIVersion,
		Timeout:     time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		RetryCount:  cfg.RetryCount,
		UserAgent:   fmt.Sprintf("ghostmcp/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH),
	})
}
