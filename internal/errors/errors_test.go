package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"phackdemo/domain/core"
)

func TestGetCodeFromDomainSentinels(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewInvalidBatchError("batch is empty"), CodeInvalidBatch, http.StatusBadRequest},
		{core.NewConfigurationError("sample size", 0), CodeConfigInvalid, http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", core.ErrSessionNotFound), CodeNotFound, http.StatusNotFound},
		{core.ErrRunInProgress, CodeConflict, http.StatusConflict},
		{context.DeadlineExceeded, CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, GetCode(tt.err), "%v", tt.err)
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestWrapKeepsCodeAndCause(t *testing.T) {
	base := core.NewInvalidBatchError("batch is empty")
	wrapped := Wrapf(base, "run %s", "abc")

	assert.True(t, IsAppError(wrapped))
	assert.Equal(t, CodeInvalidBatch, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, core.ErrInvalidBatch))
	assert.Equal(t, "run abc: invalid batch: batch is empty", wrapped.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestConfigInvalidIsDomainConfigurationError(t *testing.T) {
	err := ConfigInvalid("TRIAL_CAP must be positive")
	assert.True(t, core.IsInvalidConfiguration(err))
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
}
