package cfapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudflare/cloudflare-go/v4"
	"github.com/cloudflare/cloudflare-go/v4/option"
)

const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// StatusError is a Cloudflare response outside the 2xx range.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Body)
}

type Settings struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Cloudflare API client with SDK retries disabled.
// Non-2xx responses surface as *StatusError tagged with service.
func NewClient(service string, s Settings) *cloudflare.Client {
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(base, "/") + "/"),
		option.WithAPIToken(s.Token),
		option.WithMaxRetries(0),
		option.WithMiddleware(statusErrors(service)),
	}
	if s.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(s.HTTPClient))
	}
	return cloudflare.NewClient(opts...)
}

func statusErrors(service string) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		resp, err := next(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &StatusError{
				Service:    service,
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(raw)),
			}
		}
		return resp, nil
	}
}
