package restconf

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/policy"
)

type capturedRequest struct {
	method string
	path   string
	ct     string
	user   string
	pass   string
	body   []byte
}

func newTestClient(t *testing.T, status int, respBody string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.ct = r.Header.Get("Content-Type")
		captured.user, captured.pass, _ = r.BasicAuth()
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return New(u.Hostname(), port, WithBasicAuth("sysadmin", "secret")), captured
}

func TestDeleteAllFirewallNodes(t *testing.T) {
	c, captured := newTestClient(t, http.StatusNoContent, "")

	err := c.DeleteAllFirewallNodes(context.Background(), "ctx1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, captured.method)
	assert.Equal(t, "/restconf/data/clixon-ngfw:contexts/context=ctx1/firewall", captured.path)
	assert.Equal(t, "sysadmin", captured.user)
	assert.Equal(t, "secret", captured.pass)
}

func TestCreateSubnetsAndGroups(t *testing.T) {
	c, captured := newTestClient(t, http.StatusCreated, "")

	groups := []alloc.Group{
		{Name: "group-1", Subnets: []alloc.Subnet{
			{ID: "a", Context: "ctx1", Block: netip.MustParsePrefix("10.1.2.0/30")},
			{ID: "b", Context: "ctx1", Block: netip.MustParsePrefix("10.1.2.4/30")},
		}},
	}

	err := c.CreateSubnetsAndGroups(context.Background(), "ctx1", groups)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, captured.method)
	assert.Equal(t,
		"/restconf/data/clixon-ngfw:contexts/context=ctx1/firewall/address/ipv4/ipv4-address",
		captured.path)
	assert.Equal(t, yangDataJSON, captured.ct)

	var body SubnetsBody
	require.NoError(t, json.Unmarshal(captured.body, &body))
	require.Len(t, body.IPv4Address.AddressGroups, 1)
	assert.Equal(t, "group-1", body.IPv4Address.AddressGroups[0].GroupName)
	assert.Equal(t, []string{"10.1.2.0/30", "10.1.2.4/30"},
		body.IPv4Address.AddressGroups[0].AddressTypes.IPSubnets)
}

func TestCreateAclEntries(t *testing.T) {
	c, captured := newTestClient(t, http.StatusCreated, "")

	entries := []policy.Entry{
		{Name: "group-1-acl", SequenceID: 1, SrcGroup: "group-1", Action: policy.ActionAccept},
		{Name: "group-2-acl", SequenceID: 2, SrcGroup: "group-2", Action: policy.ActionAccept},
	}

	err := c.CreateAclEntries(context.Background(), "ctx1", entries)
	require.NoError(t, err)

	assert.Equal(t,
		"/restconf/data/clixon-ngfw:contexts/context=ctx1/firewall/access-lists-ipv4",
		captured.path)

	var body ACLBody
	require.NoError(t, json.Unmarshal(captured.body, &body))
	assert.Equal(t, "acl_ipv4", body.AccessList.Type)
	require.Len(t, body.AccessList.ACLEntries.ACLEntry, 2)
	first := body.AccessList.ACLEntries.ACLEntry[0]
	assert.Equal(t, 1, first.SequenceID)
	assert.Equal(t, "accept", first.Actions.Config.ForwardingAction)
	assert.Equal(t, []string{"group-1"}, first.SrcAddress)
}

func TestCreateSecurityPolicy(t *testing.T) {
	c, captured := newTestClient(t, http.StatusCreated, "")

	sp := policy.SecurityPolicy{
		Name:          "def_drop",
		DefaultAction: policy.ActionDrop,
		Rules: []policy.Rule{
			{Sequence: 1, Name: "allow-mgmt", Action: policy.ActionAccept, SrcGroups: []string{"mgmt"}},
			{Sequence: 2, Name: "group-1-acl", Action: policy.ActionAccept, SrcGroups: []string{"group-1"}, Derived: true},
		},
	}

	err := c.CreateSecurityPolicy(context.Background(), "ctx1", sp)
	require.NoError(t, err)

	assert.Equal(t,
		"/restconf/data/clixon-ngfw:contexts/context=ctx1/firewall/access-policies-ipv4",
		captured.path)

	var body PolicyBody
	require.NoError(t, json.Unmarshal(captured.body, &body))
	ap := body.AccessPolicies.AccessPolicy
	assert.Equal(t, "def_drop", ap.Config.Name)
	assert.Equal(t, "drop", ap.Config.DefaultPolicy)
	require.Len(t, ap.Rules.Rule, 2)
	assert.Equal(t, "allow-mgmt", ap.Rules.Rule[0].Name)
	assert.Equal(t, 2, ap.Rules.Rule[1].SequenceID)
}

func TestRemoteErrorOnConflict(t *testing.T) {
	c, _ := newTestClient(t, http.StatusConflict, `{"error":"name already exists"}`)

	err := c.DeleteAllFirewallNodes(context.Background(), "ctx1")
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusConflict, remote.StatusCode)
	assert.Contains(t, remote.Body, "already exists")
	assert.Equal(t, "delete-firewall-nodes", remote.Op)
}

func TestRemoteErrorOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	srv.Close() // nothing listening anymore

	c := New(u.Hostname(), port)
	err = c.DeleteAllFirewallNodes(context.Background(), "ctx1")
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Zero(t, remote.StatusCode)
	assert.Error(t, remote.Err)
}

func TestContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.DeleteAllFirewallNodes(ctx, "ctx1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextPathEscaping(t *testing.T) {
	c, captured := newTestClient(t, http.StatusNoContent, "")

	err := c.DeleteAllFirewallNodes(context.Background(), "ctx one")
	require.NoError(t, err)
	assert.Contains(t, captured.path, "context=ctx one") // URL.Path is decoded
}
