package wsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gfabbian/NaMaster/nmterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type state struct {
	LMax int
	M    *mat.Dense
}

func TestSaveLoad(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "w.dat")
	want := state{7, mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6.5})}
	require.NoError(t, Save("test", fname, "mcm", want))

	kind, err := Kind(fname)
	require.NoError(t, err)
	assert.Equal(t, "mcm", kind)

	var got state
	require.NoError(t, Load("test", fname, "mcm", &got))
	assert.Equal(t, want.LMax, got.LMax)
	assert.True(t, mat.Equal(want.M, got.M))

	err = Load("test", fname, "cw", &got)
	assert.ErrorIs(t, err, nmterr.ErrRead)
}

func TestSave_Errors(t *testing.T) {
	err := Save("test", filepath.Join(t.TempDir(), "missing", "w.dat"), "mcm", state{})
	assert.ErrorIs(t, err, nmterr.ErrWrite)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Errors(t *testing.T) {
	var s state
	err := Load("test", "none", "mcm", &s)
	assert.ErrorIs(t, err, nmterr.ErrRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	fname := filepath.Join(t.TempDir(), "junk.dat")
	require.NoError(t, os.WriteFile(fname, []byte("not a workspace"), 0o644))
	err = Load("test", fname, "mcm", &s)
	assert.ErrorIs(t, err, nmterr.ErrRead)
	_, err = Kind(fname)
	assert.Error(t, err)
}
