package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", validator.ValidationErrors{{Field: "reason", Message: "required"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"rule violation", overtime.ErrMaxDuration, http.StatusUnprocessableEntity, "OT_MAX_DURATION"},
		{"wrapped rule violation", fmt.Errorf("create: %w", overtime.ErrStartBeforeWorkEnd), http.StatusUnprocessableEntity, "OT_START_BEFORE_WORK_END"},
		{"photo required", overtime.ErrPhotoRequired, http.StatusBadRequest, "OT_PHOTO_REQUIRED"},
		{"upload failed", overtime.ErrPhotoUploadFailed, http.StatusBadGateway, "OT_PHOTO_UPLOAD_FAILED"},
		{"missing claims", auth.ErrMissingClaims, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"no company", auth.ErrCompanyNotFound, http.StatusForbidden, "FORBIDDEN"},
		{"employee not found", employee.ErrEmployeeNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"employee inactive", employee.ErrEmployeeInactive, http.StatusForbidden, "FORBIDDEN"},
		{"stale state", overtime.ErrStaleState, http.StatusConflict, CodeInvalidTransition},
		{"wrapped state", fmt.Errorf("end: %w", overtime.ErrNotStarted), http.StatusConflict, CodeNotStarted},
		{"notification not found", notification.ErrNotificationNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"shutting down", notification.ErrServiceStopped, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, validator.ValidationErrors{
		{Field: "latitude", Message: "must be between -90 and 90"},
	})

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "must be between -90 and 90", resp.Error.Details["latitude"])
}
