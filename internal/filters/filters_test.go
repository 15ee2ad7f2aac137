package filters

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_DeclarationOrder(t *testing.T) {
	assert.Equal(t, []Key{
		StateName, Sector, DistrictName, Religion, SocialGroup,
		HouseholdSize, Panel, Quarter, Visit,
	}, Keys())

	// callers cannot mutate the canonical order
	k := Keys()
	k[0] = Visit
	assert.Equal(t, StateName, Keys()[0])
}

func TestKey_Indirect(t *testing.T) {
	for _, k := range Keys() {
		want := k == StateName || k == DistrictName
		assert.Equal(t, want, k.Indirect(), k)
	}
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("social_group")
	assert.True(t, ok)
	assert.Equal(t, SocialGroup, k)

	_, ok = ParseKey("Social_Group")
	assert.False(t, ok)
	_, ok = ParseKey("income")
	assert.False(t, ok)
}

func TestSet_EmptyValuesAreAbsent(t *testing.T) {
	var s Set
	s.Put(Sector, "")
	assert.True(t, s.IsEmpty())

	s.Put(Sector, "Urban")
	s.Put(Sector, "")
	assert.False(t, s.Has(Sector))
}

func TestSet_WhitespaceIsAValue(t *testing.T) {
	var s Set
	s.Put(Religion, "   ")
	v, ok := s.Get(Religion)
	require.True(t, ok)
	assert.Equal(t, "   ", v)

	q := FromValues(url.Values{"state_name": {" "}})
	assert.True(t, q.Has(StateName))
}

func TestSet_EntriesFollowDeclarationOrder(t *testing.T) {
	var s Set
	s.Put(Visit, "1")
	s.Put(StateName, "Bihar")
	s.Put(Religion, "Hindu")

	got := s.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, StateName, got[0].Key)
	assert.Equal(t, Religion, got[1].Key)
	assert.Equal(t, Visit, got[2].Key)
}

func TestSet_MarshalJSON(t *testing.T) {
	var s Set
	s.Put(Visit, "2")
	s.Put(StateName, "Tamil Nadu")

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"state_name":"Tamil Nadu","visit":"2"}`, string(b))

	b, err = json.Marshal(Set{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestSet_UnmarshalJSONDropsUnknownKeys(t *testing.T) {
	var s Set
	require.NoError(t, json.Unmarshal([]byte(`{"sector":"Rural","income":"high","panel":3}`), &s))
	assert.Equal(t, map[string]string{"sector": "Rural", "panel": "3"}, s.Map())
}

func TestFromMap(t *testing.T) {
	s := FromMap(map[string]any{
		"state_name":     "Bihar",
		"sector":         "Urban",
		"religion":       "Hindu",
		"household_size": float64(4),
		"quarter":        nil,
		"visit":          []any{"1"},
		"favourite_food": "rice",
	})

	assert.Equal(t, map[string]string{
		"state_name":     "Bihar",
		"sector":         "Urban",
		"religion":       "Hindu",
		"household_size": "4",
	}, s.Map())
}

func TestFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("district_name", "Patna")
	v.Set("sector", "")
	v.Set("drop_table", "x")

	s := FromValues(v)
	assert.Equal(t, 1, s.Len())
	got, ok := s.Get(DistrictName)
	assert.True(t, ok)
	assert.Equal(t, "Patna", got)
}

func TestSet_String(t *testing.T) {
	assert.Equal(t, "none", Set{}.String())
	s := FromStrings(map[string]string{"sector": "Urban"})
	assert.Equal(t, `{"sector":"Urban"}`, s.String())
}
