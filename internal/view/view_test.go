package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrasense/agriops/internal/types"
)

func testCatalog() []types.Entity {
	return []types.Entity{
		{ID: "S1", Type: "AgriSensor", Category: types.CategorySensors, Name: "Soil-1", Municipality: "Almere", Status: types.StatusActive, HasLocation: true},
		{ID: "S2", Type: "AgriSensor", Category: types.CategorySensors, Name: "Soil-2", Municipality: "Almere", Status: types.StatusInactive},
		{ID: "T1", Type: "AgriTractor", Category: types.CategoryFleet, Name: "Fendt 724", Municipality: "Lelystad", Status: types.StatusActive, HasLocation: true},
		{ID: "P1", Type: "AgriParcel", Category: types.CategoryParcels, Name: "North Field", Municipality: "Almere", Status: types.StatusActive, HasLocation: true},
		{ID: "W1", Type: "WeatherStation", Category: types.CategoryWeather, Name: "Station Alpha", Municipality: "Lelystad", Status: types.StatusMaintenance},
	}
}

func ids(entities []types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func TestApplyFilters_StatusKeepsOriginalOrder(t *testing.T) {
	got := ApplyFilters(testCatalog(), Filters{Statuses: []string{types.StatusActive}})
	assert.Equal(t, []string{"S1", "T1", "P1"}, ids(got))
}

func TestApplyFilters_DimensionsAreConjunctive(t *testing.T) {
	f := Filters{
		Statuses:     []string{types.StatusActive},
		Municipality: "Almere",
	}
	got := ApplyFilters(testCatalog(), f)
	assert.Equal(t, []string{"S1", "P1"}, ids(got))
}

func TestApplyFilters_MultiSelectIsDisjunctive(t *testing.T) {
	f := Filters{Categories: []string{types.CategoryFleet, types.CategoryWeather}}
	got := ApplyFilters(testCatalog(), f)
	assert.Equal(t, []string{"T1", "W1"}, ids(got))
}

func TestApplyFilters_HasLocationTriState(t *testing.T) {
	catalog := testCatalog()

	got := ApplyFilters(catalog, Filters{})
	assert.Len(t, got, len(catalog), "nil HasLocation must not filter")

	yes, no := true, false
	assert.Equal(t, []string{"S1", "T1", "P1"}, ids(ApplyFilters(catalog, Filters{HasLocation: &yes})))
	assert.Equal(t, []string{"S2", "W1"}, ids(ApplyFilters(catalog, Filters{HasLocation: &no})))
}

func TestApplyFilters_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	catalog := testCatalog()

	assert.Equal(t, []string{"S1", "S2"}, ids(ApplyFilters(catalog, Filters{Search: "soil"})))
	// Matches municipality too.
	assert.Equal(t, []string{"T1", "W1"}, ids(ApplyFilters(catalog, Filters{Search: "LELYSTAD"})))
	assert.Empty(t, ApplyFilters(catalog, Filters{Search: "zzz"}))
}

func TestApplyFilters_EmptyFilterPassesEverything(t *testing.T) {
	catalog := testCatalog()
	got := ApplyFilters(catalog, Filters{})
	assert.Equal(t, ids(catalog), ids(got))
}

func TestApplySort_ByNameBothDirections(t *testing.T) {
	catalog := testCatalog()

	asc := ApplySort(catalog, Sort{Field: "name", Ascending: true})
	assert.Equal(t, []string{"T1", "P1", "S1", "S2", "W1"}, ids(asc))

	desc := ApplySort(catalog, Sort{Field: "name", Ascending: false})
	assert.Equal(t, []string{"W1", "S2", "S1", "P1", "T1"}, ids(desc))
}

func TestApplySort_StableOnEqualKeys(t *testing.T) {
	catalog := testCatalog()
	got := ApplySort(catalog, Sort{Field: "municipality", Ascending: true})
	// Equal municipalities keep original relative order.
	assert.Equal(t, []string{"S1", "S2", "P1", "T1", "W1"}, ids(got))

	again := ApplySort(got, Sort{Field: "municipality", Ascending: true})
	assert.Equal(t, ids(got), ids(again))
}

func TestApplySort_ZeroValueKeepsOrder(t *testing.T) {
	catalog := testCatalog()
	got := ApplySort(catalog, Sort{})
	assert.Equal(t, ids(catalog), ids(got))
}

func TestApplySort_DoesNotMutateInput(t *testing.T) {
	catalog := testCatalog()
	before := ids(catalog)
	ApplySort(catalog, Sort{Field: "name", Ascending: true})
	assert.Equal(t, before, ids(catalog))
}

func TestToggle(t *testing.T) {
	s := Toggle(Sort{}, "name")
	assert.Equal(t, Sort{Field: "name", Ascending: true}, s)

	s = Toggle(s, "name")
	assert.Equal(t, Sort{Field: "name", Ascending: false}, s)

	// A new field resets to ascending regardless of prior direction.
	s = Toggle(s, "status")
	assert.Equal(t, Sort{Field: "status", Ascending: true}, s)
}

func TestDeriveCounts(t *testing.T) {
	c := DeriveCounts(testCatalog())

	require.NotNil(t, c.ByCategory)
	assert.Equal(t, 2, c.ByCategory[types.CategorySensors])
	assert.Equal(t, 1, c.ByCategory[types.CategoryFleet])
	assert.Equal(t, 1, c.ByCategory[types.CategoryParcels])
	assert.Equal(t, 1, c.ByCategory[types.CategoryWeather])

	assert.Equal(t, 2, c.ByType["AgriSensor"])
	assert.Equal(t, 1, c.ByType["AgriTractor"])
}
