package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Legal_Aid ")
	require.NoError(t, err)
	assert.Equal(t, CategoryLegalAid, c)

	_, err = ParseCategory("knitting")
	assert.Error(t, err)
}

func TestSortedSet(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedSet("c", "a", "", "b", "a"))
	assert.Nil(t, SortedSet[string]())
	assert.Nil(t, SortedSet("", ""))
}

func TestUnion(t *testing.T) {
	got := Union([]Category{CategoryHousing, CategoryLegalAid}, []Category{CategoryLegalAid, CategoryAdvocacy})
	assert.Equal(t, []Category{CategoryAdvocacy, CategoryHousing, CategoryLegalAid}, got)
	assert.True(t, Contains(got, CategoryAdvocacy))
	assert.False(t, Contains(got, CategoryHealth))
}

func TestAgeRangeOverlaps(t *testing.T) {
	assert.True(t, AgeRange{}.Overlaps(10, 17))
	assert.True(t, AgeRange{Min: IntPtr(12), Max: IntPtr(25)}.Overlaps(10, 17))
	assert.False(t, AgeRange{Min: IntPtr(18)}.Overlaps(10, 17))
	assert.False(t, AgeRange{Max: IntPtr(8)}.Overlaps(10, 17))
}

func TestCandidateClone_IsDeep(t *testing.T) {
	orig := CandidateRecord{
		Name:       "A",
		Categories: []Category{CategoryHousing},
		Keywords:   []string{"youth"},
		Location:   Location{Coordinates: &Coordinates{Lat: -27.4, Lng: 153.0}},
		AgeRange:   AgeRange{Min: IntPtr(10)},
	}
	cp := orig.Clone()
	cp.Categories[0] = CategoryHealth
	cp.Keywords[0] = "adult"
	cp.Location.Coordinates.Lat = 0
	*cp.AgeRange.Min = 99

	assert.Equal(t, CategoryHousing, orig.Categories[0])
	assert.Equal(t, "youth", orig.Keywords[0])
	assert.InDelta(t, -27.4, orig.Location.Coordinates.Lat, 0.0001)
	assert.Equal(t, 10, *orig.AgeRange.Min)
}

func TestHistogramBucket(t *testing.T) {
	assert.Equal(t, 0, HistogramBucket(0))
	assert.Equal(t, 0, HistogramBucket(-1))
	assert.Equal(t, 4, HistogramBucket(0.45))
	assert.Equal(t, 9, HistogramBucket(0.95))
	assert.Equal(t, 9, HistogramBucket(1.0))
}

func TestRunStatisticsClone(t *testing.T) {
	s := NewRunStatistics("run-1")
	s.ErrorsByKind["transport_error"] = 2
	s.Sources["ckan"] = SourceSummary{Candidates: 3, ByState: map[string]int{"QLD": 3}}

	cp := s.Clone()
	cp.ErrorsByKind["transport_error"] = 9
	cp.Sources["ckan"].ByState["QLD"] = 0

	assert.Equal(t, 2, s.ErrorsByKind["transport_error"])
	assert.Equal(t, 3, s.Sources["ckan"].ByState["QLD"])
}

func TestEntitySourceNames(t *testing.T) {
	e := ServiceEntity{Sources: []Provenance{{SourceName: "b"}, {SourceName: "a"}, {SourceName: "b"}}}
	assert.Equal(t, []string{"a", "b"}, e.SourceNames())
}
