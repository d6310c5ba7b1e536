package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := WrapError(os.ErrNotExist, ErrFileNotFound, "catalog not found").
		WithContext("path", "/i18n/Cometa_en_EN.ts").
		WithContext("language", "English")

	assert.Equal(t,
		"[FileNotFound] catalog not found | context: language=English, path=/i18n/Cometa_en_EN.ts | cause: file does not exist",
		err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsErrorType_ThroughWrapping(t *testing.T) {
	base := NewError(ErrParse, "bad xml")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, IsErrorType(wrapped, ErrParse))
	assert.False(t, IsErrorType(wrapped, ErrValidation))
	assert.Equal(t, ErrParse, TypeOf(wrapped))
	assert.Equal(t, ErrUnknown, TypeOf(errors.New("plain")))
}

func TestHandle(t *testing.T) {
	assert.True(t, Handle(NewError(ErrConfig, "missing dir")))
	assert.False(t, Handle(errors.New("plain")))
}

func TestAdvice_EveryType(t *testing.T) {
	for typ := ErrFileNotFound; typ <= ErrUnknown; typ++ {
		assert.NotEmpty(t, Advice(typ), typ.String())
	}
}
