package nmterr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := Wrap("mcm.ReadFrom", ErrRead, os.ErrNotExist, "open %q", "none")
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrWrite)
	assert.Equal(t, `mcm.ReadFrom: cannot read workspace: open "none": file does not exist`, err.Error())

	wrapped := fmt.Errorf("load: %w", New("covar.Compute", ErrSpin, "spin %d", 1))
	assert.ErrorIs(t, wrapped, ErrSpin)
	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "covar.Compute", e.Op)
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		Kind error
		Want Class
	}{
		{ErrShape, Validation},
		{ErrSpin, Validation},
		{ErrResolution, Validation},
		{ErrBinning, Validation},
		{ErrBandpowers, Validation},
		{ErrNotInitialized, Validation},
		{ErrInvalid, Validation},
		{ErrRead, Runtime},
		{ErrWrite, Runtime},
	}
	for _, c := range cases {
		assert.Equal(t, c.Want, ClassOf(New("op", c.Kind, "")), c.Kind.Error())
	}
	assert.Equal(t, Runtime, ClassOf(errors.New("other")))
}
