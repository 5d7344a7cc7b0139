// Package domain holds the closed knowledge-domain enumeration and the typed
// identifiers shared across features.
package domain

import (
	dErrors "veritas/pkg/domain-errors"
)

// Domain is one of the eight fixed knowledge categories used both for claim
// classification and credibility scoring. The set is closed: anything outside
// it is rejected at the boundary with invalid_input, never silently matched.
type Domain string

const (
	DomainEnvironment   Domain = "Environment & Climate"
	DomainEntertainment Domain = "Entertainment & Celebrities"
	DomainLaw           Domain = "Law, Rights & Ethics"
	DomainBusiness      Domain = "Business & Economy"
	DomainNews          Domain = "News & Media"
	DomainPolitics      Domain = "Politics & Government"
	DomainHealth        Domain = "Health & Medicine"
	DomainScience       Domain = "Science & Technology"
)

// domainOrder fixes the canonical position of each domain. The order is part
// of the public contract: credibility profiles are serialized as 8 floats in
// exactly this order, so it must never be reshuffled.
var domainOrder = map[Domain]int{
	DomainEnvironment:   0,
	DomainEntertainment: 1,
	DomainLaw:           2,
	DomainBusiness:      3,
	DomainNews:          4,
	DomainPolitics:      5,
	DomainHealth:        6,
	DomainScience:       7,
}

// NumDomains is the size of a credibility profile.
const NumDomains = 8

// ParseDomain validates a domain string against the closed enumeration.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if _, ok := domainOrder[d]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown knowledge domain")
	}
	return d, nil
}

// Valid reports whether d is a member of the enumeration.
func (d Domain) Valid() bool {
	_, ok := domainOrder[d]
	return ok
}

// Index returns the canonical position of d. Only serialization of the
// 8-float profile should depend on this; business logic keys by Domain value.
func (d Domain) Index() int {
	i, ok := domainOrder[d]
	if !ok {
		return -1
	}
	return i
}

func (d Domain) String() string { return string(d) }

// Domains returns all domains in canonical order.
func Domains() []Domain {
	out := make([]Domain, NumDomains)
	for d, i := range domainOrder {
		out[i] = d
	}
	return out
}
