package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumnsCaseInsensitiveExact(t *testing.T) {
	idx := ResolveColumns([]string{"fips", "ADMIN2", "province_state", "Country_Region", "CONFIRMED", "deaths", "Active_Cases"})

	tests := []struct {
		key  Key
		want string
		ok   bool
	}{
		{Country, "Country_Region", true},
		{Province, "province_state", true},
		{County, "ADMIN2", true},
		{FIPS, "fips", true},
		{Confirmed, "CONFIRMED", true},
		{Deaths, "deaths", true},
		{Recovered, "", false},
		{Active, "", false}, // no fuzzy match on Active_Cases
	}
	for _, tt := range tests {
		got, ok := idx.Lookup(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestRequireMissingColumn(t *testing.T) {
	idx := ResolveColumns([]string{"Country_Region", "Confirmed"})
	_, err := idx.Require(Province)
	var mc *MissingColumnError
	assert.ErrorAs(t, err, &mc)
	assert.Equal(t, Province, mc.Key)

	name, err := idx.Require(Confirmed)
	assert.NoError(t, err)
	assert.Equal(t, "Confirmed", name)
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey(" Deaths ")
	assert.True(t, ok)
	assert.Equal(t, Deaths, k)
	_, ok = ParseKey("hospitalized")
	assert.False(t, ok)
}

func TestColumnIndexMapIsCopy(t *testing.T) {
	idx := ResolveColumns([]string{"Country_Region"})
	m := idx.Map()
	m[Deaths] = "Deaths"
	assert.False(t, idx.Has(Deaths))
	assert.Contains(t, idx.String(), "country=Country_Region")
	assert.Contains(t, idx.String(), "deaths=-")
}
