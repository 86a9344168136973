package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfilesMissingFile(t *testing.T) {
	cfg, err := LoadProfiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Banks)
}

func TestSaveAndLoadProfiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveProfiles(dir, &ProfilesConfig{Banks: map[string]BankProfile{
		"b1": {Name: "Marcus", Description: "personal assistant"},
	}}))

	cfg, err := LoadProfiles(dir)
	require.NoError(t, err)

	profile, ok := cfg.Get("b1")
	require.True(t, ok)
	assert.Equal(t, "Marcus", profile.Name)
	assert.Equal(t, "personal assistant", profile.Description)

	_, ok = cfg.Get("unknown")
	assert.False(t, ok)
}
