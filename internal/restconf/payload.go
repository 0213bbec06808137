package restconf

import (
	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/policy"
)

// Wire types mirror the clixon-ngfw YANG tree in its JSON encoding. They
// carry yaml tags too so dry runs can render the exact payloads.

// AddressTypes holds the subnet list of an address group.
type AddressTypes struct {
	IPSubnets []string `json:"ip-subnets" yaml:"ip-subnets"`
}

// AddressGroup is one named group of subnets.
type AddressGroup struct {
	GroupName    string       `json:"group-name" yaml:"group-name"`
	AddressTypes AddressTypes `json:"address-types" yaml:"address-types"`
}

// IPv4Address is the ipv4-address container.
type IPv4Address struct {
	AddressGroups []AddressGroup `json:"address-group" yaml:"address-group"`
}

// SubnetsBody is the PUT body for the context's address groups.
type SubnetsBody struct {
	IPv4Address IPv4Address `json:"clixon-ngfw:ipv4-address" yaml:"clixon-ngfw:ipv4-address"`
}

// SubnetsPayload builds the address-group payload from allocated groups,
// preserving group and subnet order.
func SubnetsPayload(groups []alloc.Group) SubnetsBody {
	ags := make([]AddressGroup, 0, len(groups))
	for _, g := range groups {
		ags = append(ags, AddressGroup{
			GroupName:    g.Name,
			AddressTypes: AddressTypes{IPSubnets: g.CIDRs()},
		})
	}
	return SubnetsBody{IPv4Address: IPv4Address{AddressGroups: ags}}
}

// ActionConfig carries a forwarding action.
type ActionConfig struct {
	ForwardingAction string `json:"forwarding-action" yaml:"forwarding-action"`
}

// Actions wraps the action config container.
type Actions struct {
	Config ActionConfig `json:"config" yaml:"config"`
}

// ACLEntry is one access-list entry on the wire.
type ACLEntry struct {
	Name       string   `json:"name" yaml:"name"`
	SequenceID int      `json:"sequence-id" yaml:"sequence-id"`
	Actions    Actions  `json:"actions" yaml:"actions"`
	SrcAddress []string `json:"src-address" yaml:"src-address"`
}

// ACLEntries is the acl-entry list container.
type ACLEntries struct {
	ACLEntry []ACLEntry `json:"acl-entry" yaml:"acl-entry"`
}

// AccessList is the context's IPv4 access list.
type AccessList struct {
	Type       string     `json:"type" yaml:"type"`
	ACLEntries ACLEntries `json:"acl-entries" yaml:"acl-entries"`
}

// ACLBody is the PUT body for the context's access list.
type ACLBody struct {
	AccessList AccessList `json:"clixon-ngfw:access-lists-ipv4" yaml:"clixon-ngfw:access-lists-ipv4"`
}

// ACLPayload builds the access-list payload from composed entries.
func ACLPayload(entries []policy.Entry) ACLBody {
	wire := make([]ACLEntry, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, ACLEntry{
			Name:       e.Name,
			SequenceID: e.SequenceID,
			Actions:    Actions{Config: ActionConfig{ForwardingAction: string(e.Action)}},
			SrcAddress: []string{e.SrcGroup},
		})
	}
	return ACLBody{AccessList: AccessList{
		Type:       "acl_ipv4",
		ACLEntries: ACLEntries{ACLEntry: wire},
	}}
}

// PolicyRule is one ordered rule of the access policy on the wire.
type PolicyRule struct {
	SequenceID int      `json:"sequence-id" yaml:"sequence-id"`
	Name       string   `json:"name" yaml:"name"`
	Actions    Actions  `json:"actions" yaml:"actions"`
	SrcAddress []string `json:"src-address,omitempty" yaml:"src-address,omitempty"`
}

// PolicyRules is the rule list container.
type PolicyRules struct {
	Rule []PolicyRule `json:"rule" yaml:"rule"`
}

// AccessPolicyConfig is the policy envelope: its name and default action.
type AccessPolicyConfig struct {
	Name          string `json:"name" yaml:"name"`
	DefaultPolicy string `json:"default-policy" yaml:"default-policy"`
}

// AccessPolicy is the context's IPv4 access policy.
type AccessPolicy struct {
	Type   string             `json:"type" yaml:"type"`
	Config AccessPolicyConfig `json:"config" yaml:"config"`
	Rules  PolicyRules        `json:"rules" yaml:"rules"`
}

// AccessPolicies wraps the access-policy container.
type AccessPolicies struct {
	AccessPolicy AccessPolicy `json:"access-policy" yaml:"access-policy"`
}

// PolicyBody is the PUT body for the context's access policy.
type PolicyBody struct {
	AccessPolicies AccessPolicies `json:"clixon-ngfw:access-policies-ipv4" yaml:"clixon-ngfw:access-policies-ipv4"`
}

// PolicyPayload builds the access-policy payload from a composed policy,
// preserving rule order.
func PolicyPayload(sp policy.SecurityPolicy) PolicyBody {
	rules := make([]PolicyRule, 0, len(sp.Rules))
	for _, r := range sp.Rules {
		rules = append(rules, PolicyRule{
			SequenceID: r.Sequence,
			Name:       r.Name,
			Actions:    Actions{Config: ActionConfig{ForwardingAction: string(r.Action)}},
			SrcAddress: r.SrcGroups,
		})
	}
	return PolicyBody{AccessPolicies: AccessPolicies{AccessPolicy: AccessPolicy{
		Type: "acl_ipv4",
		Config: AccessPolicyConfig{
			Name:          sp.Name,
			DefaultPolicy: string(sp.DefaultAction),
		},
		Rules: PolicyRules{Rule: rules},
	}}}
}
