package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

func sampleTask() schemas.TaskRequest {
	return schemas.TaskRequest{
		URL:       "https://meetings.hubspot.com/caceres-d/prueba-rentmies",
		FirstName: "Ana",
		LastName:  "Lopez",
		Email:     "ana@x.com",
		Hour:      "11",
	}
}

func TestTaskRequest_Validate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		url     string
		domain  string
		wantErr bool
	}{
		{"ValidSchedulingURL", "https://meetings.hubspot.com/caceres-d/prueba-rentmies", "", false},
		{"ValidRegionalHost", "https://meetings-eu1.hubspot.com/x", "hubspot.com", false},
		{"DomainOnlyInPath", "https://example.com/not-hubspot", "", true},
		{"DomainInQuery", "https://example.com/?u=meetings.hubspot.com", "", true},
		{"Empty", "   ", "", true},
		{"NonHTTPScheme", "ftp://meetings.hubspot.com/x", "", true},
		{"Relative", "meetings.hubspot.com/x", "", true},
		{"CustomDomain", "https://calendly.com/me", "calendly.com", false},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task := schemas.TaskRequest{URL: tt.url}
			err := task.Validate(tt.domain)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, schemas.ErrInvalidTask)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTaskRequest_Instruction(t *testing.T) {
	t.Parallel()
	task := sampleTask()
	text := task.Instruction()

	assert.Contains(t, text, task.URL)
	for _, v := range []string{"Ana", "Lopez", "ana@x.com", "11"} {
		assert.Contains(t, text, v)
	}
}

func TestTaskRequest_WithDefaults(t *testing.T) {
	t.Parallel()
	defaults := sampleTask()

	t.Run("FillsOnlyMissingFields", func(t *testing.T) {
		got := schemas.TaskRequest{FirstName: "Luis", Hour: " "}.WithDefaults(defaults)
		assert.Equal(t, "Luis", got.FirstName)
		assert.Equal(t, defaults.URL, got.URL)
		assert.Equal(t, defaults.LastName, got.LastName)
		assert.Equal(t, defaults.Email, got.Email)
		assert.Equal(t, defaults.Hour, got.Hour)
	})

	t.Run("DoesNotMutateReceiver", func(t *testing.T) {
		original := schemas.TaskRequest{}
		_ = original.WithDefaults(defaults)
		assert.Equal(t, schemas.TaskRequest{}, original)
	})
}
