package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := MissingInput("/data/subjectlist.csv", os.ErrNotExist)
	wrapped := Wrap(base, "loading roster")

	assert.Equal(t, CodeMissingInput, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, os.ErrNotExist))
	assert.Contains(t, wrapped.Error(), "loading roster")
}

func TestWrapPlainError(t *testing.T) {
	err := Wrapf(fmt.Errorf("boom"), "parcel %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "parcel 3: boom", err.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
	assert.True(t, HasCode(LookupMismatch("x"), CodeLookupMismatch))
	assert.False(t, HasCode(nil, CodeLookupMismatch))
}
