package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/apperrors"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Len(t, p.SuspiciousWords, 15)
	assert.Contains(t, p.GenericSellerNames, "store")
	assert.Contains(t, p.OfficialSellerKeywords, "store")
}

func TestRangeMatchesCategoryExactly(t *testing.T) {
	p := Default()
	assert.Equal(t, PriceRange{Low: 200, High: 2000}, p.Range("electronics"))
	assert.Equal(t, PriceRange{Low: 1, High: 10000}, p.Range("Electronics"))
	assert.Equal(t, PriceRange{Low: 1, High: 10000}, p.Range(" electronics "))
	assert.Equal(t, PriceRange{Low: 1, High: 10000}, p.Range("garden"))
	assert.Equal(t, 5000.5, p.Range("garden").Median())
}

func TestLoadMergesOverrides(t *testing.T) {
	path := writePolicy(t, `
suspicious_words: ["Knockoff", "replica"]
category_prices:
  Toys: {low: 5, high: 100}
`)
	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"knockoff", "replica"}, p.SuspiciousWords)
	assert.Equal(t, PriceRange{Low: 5, High: 100}, p.Range("toys"))
	assert.Equal(t, Default().GenericSellerNames, p.GenericSellerNames)
	assert.Equal(t, Default().DefaultRange, p.DefaultRange)
}

func TestLoadRejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty word list", "suspicious_words: []\n"},
		{"blank keyword", "generic_seller_names: [\"shop\", \" \"]\n"},
		{"empty price table", "category_prices: {}\n"},
		{"inverted range", "category_prices:\n  books: {low: 50, high: 5}\n"},
		{"not yaml", "suspicious_words: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePolicy(t, tt.body))
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err), err.Error())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestValidateRejectsUnnormalisedKeys(t *testing.T) {
	upperWord := Default()
	upperWord.SuspiciousWords = []string{"FREE", "replica"}

	upperCategory := Default()
	upperCategory.CategoryPrices = map[string]PriceRange{"Electronics": {Low: 200, High: 2000}}

	paddedCategory := Default()
	paddedCategory.CategoryPrices = map[string]PriceRange{" books": {Low: 5, High: 50}}

	for name, p := range map[string]*Policy{
		"upper-case keyword":  upperWord,
		"upper-case category": upperCategory,
		"padded category":     paddedCategory,
	} {
		err := p.Validate()
		assert.True(t, apperrors.IsConfiguration(err), name)
	}
}

func TestFingerprintTracksContents(t *testing.T) {
	assert.Equal(t, Default().Fingerprint(), Default().Fingerprint())
	assert.NotEmpty(t, Default().Fingerprint())

	changed := Default()
	changed.CategoryPrices["books"] = PriceRange{Low: 1, High: 20}
	assert.NotEqual(t, Default().Fingerprint(), changed.Fingerprint())
}
