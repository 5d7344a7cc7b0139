package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritas/pkg/domain-errors"
)

// TestCanonicalOrder pins the serialization contract: credibility profiles are
// 8 floats indexed by this exact order.
func TestCanonicalOrder(t *testing.T) {
	expected := []Domain{
		DomainEnvironment,
		DomainEntertainment,
		DomainLaw,
		DomainBusiness,
		DomainNews,
		DomainPolitics,
		DomainHealth,
		DomainScience,
	}
	require.Len(t, Domains(), NumDomains)
	assert.Equal(t, expected, Domains())

	for i, d := range expected {
		assert.Equal(t, i, d.Index(), "index drift for %s", d)
	}
	assert.Equal(t, 7, DomainScience.Index())
}

func TestParseDomain(t *testing.T) {
	t.Run("accepts every canonical domain", func(t *testing.T) {
		for _, d := range Domains() {
			parsed, err := ParseDomain(string(d))
			require.NoError(t, err)
			assert.Equal(t, d, parsed)
		}
	})

	t.Run("rejects unknown domains", func(t *testing.T) {
		for _, s := range []string{"", "Sports", "science & technology", "Science&Technology", " Science & Technology"} {
			_, err := ParseDomain(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("unknown domain has index -1", func(t *testing.T) {
		assert.Equal(t, -1, Domain("Sports").Index())
		assert.False(t, Domain("Sports").Valid())
	})
}
