package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/mocks"
)

func TestCheckDuplicatesBatchFlagsKnownDuplicates(t *testing.T) {
	checker := &mocks.DuplicateChecker{Duplicates: map[string]bool{"known": true}}
	units := []entities.Unit{
		{FactText: "fresh"},
		{FactText: "known"},
	}

	flags := CheckDuplicatesBatch(context.Background(), checker, "b1", units)
	assert.Equal(t, []bool{false, true}, flags)
}

func TestCheckDuplicatesBatchNilChecker(t *testing.T) {
	flags := CheckDuplicatesBatch(context.Background(), nil, "b1", []entities.Unit{{FactText: "a"}})
	assert.Equal(t, []bool{false}, flags)
}

func TestCheckDuplicatesBatchFailureDefaultsToNotDuplicate(t *testing.T) {
	checker := &mocks.DuplicateChecker{Err: errors.New("index unavailable")}
	units := []entities.Unit{{FactText: "a"}, {FactText: "b"}}

	flags := CheckDuplicatesBatch(context.Background(), checker, "b1", units)
	assert.Equal(t, []bool{false, false}, flags, "dedup is advisory: failures keep the fact")
}

func TestFilterDuplicatesPreservesOrder(t *testing.T) {
	units := []entities.Unit{
		{FactText: "a"}, {FactText: "b"}, {FactText: "c"},
	}
	kept := FilterDuplicates(units, []bool{false, true, false})
	assert.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].FactText)
	assert.Equal(t, "c", kept[1].FactText)
}
