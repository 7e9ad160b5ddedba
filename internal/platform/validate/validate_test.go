// Copyright (c) 2026 NextDash. All rights reserved.

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "first_name", "Mona", false},
		{"empty_string", "first_name", "", true},
		{"whitespace_only", "first_name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "mona@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "mona@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Positive checks the positive-number rule used for numeric
foreign keys.
*/
func TestValidator_Positive(t *testing.T) {
	v := &validate.Validator{}
	v.Positive("user_id", 7)
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.Positive("user_id", 0).Positive("role_id", -3)
	assert.True(t, v.HasErrors())

	ae := apperr.As(v.Err())
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 2)
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	// Multi-rule validation
	err := v.
		Required("password", "hunter22").
		MinLen("password", "hunter22", 8).
		MaxLen("password", "hunter22", 128).
		Email("email", "mona@example.com").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("email", "").          // Fails
		MinLen("password", "a", 8).     // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}

/*
TestValidator_OneOf checks the enumerated-value rule.
*/
func TestValidator_OneOf(t *testing.T) {
	v := &validate.Validator{}
	v.OneOf("type", "warning", "info", "success", "warning", "error")
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.OneOf("type", "urgent", "info", "success", "warning", "error")
	assert.True(t, v.HasErrors())
}
