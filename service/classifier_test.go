package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BerniceZTT/leads_end/repository"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category Category
		message  string
	}{
		{"validation", &ValidationError{Field: "email", Message: MsgInvalidEmail}, CategoryInvalidArgument, MsgInvalidEmail},
		{"timeout", &TimeoutError{Operation: "create lead", Timeout: 20 * time.Second}, CategoryTimeout, MsgTimeout},
		{"deadline", context.DeadlineExceeded, CategoryTimeout, MsgTimeout},
		{"permission", storeErr(repository.CodePermissionDenied, repository.LeadsCollection), CategoryPermissionDenied, MsgPermissionDenied},
		{"unavailable", storeErr(repository.CodeUnavailable, repository.LeadsCollection), CategoryUnavailable, MsgUnavailable},
		{"not initialized", storeErr(repository.CodeNotInitialized, repository.LeadsCollection), CategoryUnavailable, MsgUnavailable},
		{"not found", fmt.Errorf("wrapped: %w", storeErr(repository.CodeNotFound, repository.LeadsCollection)), CategoryNotFound, MsgNotFound},
		{"invalid", storeErr(repository.CodeInvalidArgument, repository.LeadsCollection), CategoryInvalidArgument, MsgInvalidArgument},
		{"offline error", &OfflineError{}, CategoryOffline, MsgOffline},
		{"unknown falls back to raw", errors.New("socket hang up"), CategoryUnknown, "socket hang up"},
		{"unknown without message", errors.New(""), CategoryUnknown, MsgUnknown},
	}

	c := NewClassifier(staticProbe(true))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.err)
			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.message, got.Message)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassifyOfflineTakesPrecedence(t *testing.T) {
	c := NewClassifier(staticProbe(false))
	for _, err := range []error{
		storeErr(repository.CodePermissionDenied, repository.LeadsCollection),
		&TimeoutError{Operation: "op", Timeout: time.Second},
		errors.New("boom"),
	} {
		got := c.Classify(err)
		assert.Equal(t, CategoryOffline, got.Category)
		assert.Equal(t, MsgOffline, got.Message)
		assert.Equal(t, err.Error(), got.Raw)
	}
}

func TestClassifyValidationBeforeOffline(t *testing.T) {
	got := NewClassifier(staticProbe(false)).Classify(&ValidationError{Field: "firstName", Message: MsgRequiredFields})
	assert.Equal(t, CategoryInvalidArgument, got.Category)
	assert.Equal(t, MsgRequiredFields, got.Message)
}

func TestClassifyNilProbe(t *testing.T) {
	got := NewClassifier(nil).Classify(storeErr(repository.CodeUnavailable, repository.LeadsCollection))
	assert.Equal(t, CategoryUnavailable, got.Category)
}
