package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/fmutools/api/v1"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDesignRecords(t *testing.T) {
	db := openTemp(t)

	old := &v1.DesignRecord{Input: "a.yaml", CreatedAt: time.Now().Add(-time.Hour), Status: v1.RunSuccess}
	recent := &v1.DesignRecord{Input: "b.yaml", Realisations: 41, Status: v1.RunSuccess}
	require.NoError(t, db.PutDesign(old))
	require.NoError(t, db.PutDesign(recent))
	assert.NotEmpty(t, recent.ID)
	assert.False(t, recent.CreatedAt.IsZero())

	got, err := db.GetDesign(recent.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 41, got.Realisations)

	missing, err := db.GetDesign("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := db.ListDesigns()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.yaml", list[0].Input, "newest first")
}

func TestTornadoRecords(t *testing.T) {
	db := openTemp(t)

	rec := &v1.TornadoRecord{
		Response:  "STOIIP_OIL",
		Selection: map[string]string{"ZONE": "Upper"},
		RefValue:  104.5,
		Bars:      []v1.TornadoBar{{SensName: "faults", Low: -1, High: 2, LowReals: []int{1}}},
	}
	require.NoError(t, db.PutTornado(rec))
	require.NoError(t, db.PutTornado(&v1.TornadoRecord{Response: "GIIP_GAS"}))

	got, err := db.GetTornado(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Bars, got.Bars)
	assert.Equal(t, "STOIIP_OIL ZONE=Upper", got.Title())

	all, err := db.ListTornado("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	oil, err := db.ListTornado("STOIIP_OIL")
	require.NoError(t, err)
	require.Len(t, oil, 1)
	assert.Equal(t, rec.ID, oil[0].ID)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.PutDesign(&v1.DesignRecord{ID: "fixed", Input: "x"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetDesign("fixed")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x", got.Input)
}
