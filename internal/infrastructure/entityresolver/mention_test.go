package entityresolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBank struct {
	ids     map[string]string
	created []string
}

func (f *fakeBank) FindOrCreateEntity(ctx context.Context, bankID, name string) (string, error) {
	if f.ids == nil {
		f.ids = make(map[string]string)
	}
	key := bankID + "/" + name
	if id, ok := f.ids[key]; ok {
		return id, nil
	}
	id := fmt.Sprintf("e%d", len(f.ids))
	f.ids[key] = id
	f.created = append(f.created, name)
	return id, nil
}

func TestResolveCreatesProperNameEntities(t *testing.T) {
	bank := &fakeBank{}
	r := NewMentionResolver()

	res, err := r.Resolve(context.Background(), bank, "b1", "Alice met Bob at Google", []string{"Alice", "Bob", "Google"})
	require.NoError(t, err)
	assert.Len(t, res, 3)
	assert.Equal(t, []string{"Alice", "Bob", "Google"}, bank.created)
	for _, resolution := range res {
		assert.Equal(t, 0.9, resolution.Confidence, "names present in the fact text resolve at mention confidence")
	}
}

func TestResolveFiltersGenericNames(t *testing.T) {
	bank := &fakeBank{}
	r := NewMentionResolver()

	res, err := r.Resolve(context.Background(), bank, "b1", "her mom is a friend", []string{"mom", "friend", "someone", "she"})
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, bank.created)
}

func TestResolveFiltersCommonNouns(t *testing.T) {
	bank := &fakeBank{}
	r := NewMentionResolver()

	res, err := r.Resolve(context.Background(), bank, "b1", "bought an apple", []string{"apple", "car"})
	require.NoError(t, err)
	assert.Empty(t, res, "all-lowercase common nouns are not proper names")
}

func TestResolveDeduplicatesNames(t *testing.T) {
	bank := &fakeBank{}
	r := NewMentionResolver()

	res, err := r.Resolve(context.Background(), bank, "b1", "Alice and Alice", []string{"Alice", "alice ", "Alice."})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestResolveInferredNameLowerConfidence(t *testing.T) {
	bank := &fakeBank{}
	r := NewMentionResolver()

	res, err := r.Resolve(context.Background(), bank, "b1", "she traveled for the shoot", []string{"Miami"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0.7, res[0].Confidence)
}
