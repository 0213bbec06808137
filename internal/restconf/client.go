// Package restconf provides the client for the remote policy store, a
// RESTCONF server modelling firewall contexts under the clixon-ngfw YANG
// module. The store is a black box: this package owns only the request and
// response contract the provisioning core needs from it.
package restconf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/brand"
	"github.com/ngfw-tools/ruleforge/internal/logging"
	"github.com/ngfw-tools/ruleforge/internal/policy"
)

const yangDataJSON = "application/yang-data+json"

// RemoteError is any failure talking to the policy store: connectivity,
// authentication, conflict, or server-side validation. Op names the failing
// operation; StatusCode and Body are zero/empty for transport failures.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: store returned status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: store returned status %d", e.Op, e.StatusCode)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Client talks to one RESTCONF server with externally supplied credentials.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *logging.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a Client for the RESTCONF server at host:port.
func New(host string, port int, opts ...Option) *Client {
	c := &Client{
		baseURL:    "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.WithComponent("restconf")
	}
	return c
}

// contextPath returns the RESTCONF data path for a firewall context subtree.
func contextPath(fwContext, subtree string) string {
	p := "/restconf/data/clixon-ngfw:contexts/context=" + url.PathEscape(fwContext) + "/firewall"
	if subtree != "" {
		p += "/" + subtree
	}
	return p
}

// do performs a request against the store and maps any failure to a
// *RemoteError tagged with op.
func (c *Client) do(ctx context.Context, op, method, path string, body any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Content-Type", yangDataJSON)
	req.Header.Set("Accept", yangDataJSON)
	req.Header.Set("User-Agent", brand.UserAgent(brand.Version))
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.log.Debug("store request succeeded", "op", op, "method", method, "status", resp.StatusCode)
	return nil
}

// DeleteAllFirewallNodes deletes every firewall node configured for the
// context. Deleting an already-empty subtree is a no-op on the store, so the
// call is naturally idempotent and safe to retry.
func (c *Client) DeleteAllFirewallNodes(ctx context.Context, fwContext string) error {
	return c.do(ctx, "delete-firewall-nodes", http.MethodDelete, contextPath(fwContext, ""), nil)
}

// CreateSubnetsAndGroups replaces the context's IPv4 address groups with the
// given groups and their subnets.
func (c *Client) CreateSubnetsAndGroups(ctx context.Context, fwContext string, groups []alloc.Group) error {
	return c.do(ctx, "create-subnets", http.MethodPut,
		contextPath(fwContext, "address/ipv4/ipv4-address"), SubnetsPayload(groups))
}

// CreateAclEntries replaces the context's IPv4 access list with entries
// referencing the previously created groups.
func (c *Client) CreateAclEntries(ctx context.Context, fwContext string, entries []policy.Entry) error {
	return c.do(ctx, "create-acl", http.MethodPut,
		contextPath(fwContext, "access-lists-ipv4"), ACLPayload(entries))
}

// CreateSecurityPolicy replaces the context's IPv4 access policy with the
// composed rule set.
func (c *Client) CreateSecurityPolicy(ctx context.Context, fwContext string, sp policy.SecurityPolicy) error {
	return c.do(ctx, "create-policy", http.MethodPut,
		contextPath(fwContext, "access-policies-ipv4"), PolicyPayload(sp))
}
