package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := ShapeMismatch("grids differ at level 3")
	wrapped := Wrap(err, "combining channel tables")
	doubly := fmt.Errorf("subject s01: %w", wrapped)

	assert.True(t, stderrors.Is(err, ErrShapeMismatch))
	assert.True(t, stderrors.Is(wrapped, ErrShapeMismatch))
	assert.True(t, stderrors.Is(doubly, ErrShapeMismatch))
	assert.False(t, stderrors.Is(doubly, ErrEmptySample))
}

func TestWrap_PreservesCode(t *testing.T) {
	err := Wrap(EmptySample("no RTs"), "estimating channel A")
	assert.Equal(t, CodeEmptySample, GetCode(err))
	assert.Equal(t, "estimating channel A: no RTs", err.Error())

	plain := Wrap(fmt.Errorf("disk on fire"), "reading")
	assert.Equal(t, CodeInternalError, GetCode(plain))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, fmt.Errorf("bad level"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.True(t, stderrors.Is(err, ErrInvalidInput))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}
