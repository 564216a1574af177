package statedb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/swellcast/swellcast/client/model"
)

func createTestDB(t *testing.T) *StateDB {
	db, err := NewStateDB(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	return db
}

func TestVariables(t *testing.T) {
	db := createTestDB(t)
	defer db.Close()

	v, err := db.GetVariable(VarTheme)
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, db.SetVariable(VarTheme, "dark"))
	require.NoError(t, db.SetVariable(VarTheme, "light")) // upsert
	v, err = db.GetVariable(VarTheme)
	require.NoError(t, err)
	require.Equal(t, "light", v)
}

func TestLastUser(t *testing.T) {
	db := createTestDB(t)
	defer db.Close()

	u, err := db.GetLastUser()
	require.NoError(t, err)
	require.Nil(t, u)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveLastUser(&model.User{
		Email:     "kai@example.com",
		Name:      "Kai",
		Theme:     "dark",
		CreatedAt: &created,
	}))

	u, err = db.GetLastUser()
	require.NoError(t, err)
	require.Equal(t, "kai@example.com", u.Email)
	require.Equal(t, "dark", u.Theme)
	require.True(t, created.Equal(*u.CreatedAt))

	// Replaced wholesale: zero-valued fields in the new snapshot must not
	// inherit columns from the old row
	require.NoError(t, db.SaveLastUser(&model.User{Email: "nalu@example.com"}))
	u, err = db.GetLastUser()
	require.NoError(t, err)
	require.Equal(t, "nalu@example.com", u.Email)
	require.Nil(t, u.CreatedAt)
	require.Equal(t, "", u.Theme)
	require.Equal(t, "", u.Name)
}

func TestSpots(t *testing.T) {
	db := createTestDB(t)
	defer db.Close()

	require.NoError(t, db.UpsertSpots([]model.Spot{
		{ID: "pipeline", Region: "oahu-north", Name: "Pipeline"},
		{ID: "sunset", Region: "oahu-north", Name: "Sunset Beach"},
		{ID: "mavericks", Region: "nor-cal", Name: "Mavericks"},
	}))
	spots, err := db.SpotsByRegion("oahu-north")
	require.NoError(t, err)
	require.Len(t, spots, 2)
	require.Equal(t, "Pipeline", spots[0].Name)

	// Upsert refreshes in place
	require.NoError(t, db.UpsertSpots([]model.Spot{
		{ID: "pipeline", Region: "oahu-north", Name: "Banzai Pipeline"},
	}))
	spots, err = db.SpotsByRegion("oahu-north")
	require.NoError(t, err)
	require.Len(t, spots, 2)
	require.Equal(t, "Banzai Pipeline", spots[0].Name)
}

func TestResetDerivedIsIdempotent(t *testing.T) {
	db := createTestDB(t)
	defer db.Close()

	require.NoError(t, db.SetVariable(VarTheme, "dark"))
	require.NoError(t, db.SaveLastUser(&model.User{Email: "kai@example.com"}))
	require.NoError(t, db.UpsertSpots([]model.Spot{{ID: "pipeline", Region: "oahu-north", Name: "Pipeline"}}))

	require.NoError(t, db.ResetDerived())
	require.NoError(t, db.ResetDerived())

	v, err := db.GetVariable(VarTheme)
	require.NoError(t, err)
	require.Equal(t, "", v)
	u, err := db.GetLastUser()
	require.NoError(t, err)
	require.Nil(t, u)
	spots, err := db.SpotsByRegion("oahu-north")
	require.NoError(t, err)
	require.Len(t, spots, 0)
}
