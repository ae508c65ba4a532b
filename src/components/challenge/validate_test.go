package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStartDefaults(t *testing.T) {
	themes := []string{"Web App", "AI Chatbot"}

	req := StartRequest{Theme: "  Web App  ", TeamSize: 4}
	require.NoError(t, ValidateStart(&req, themes))
	assert.Equal(t, "Web App", req.Theme)
	assert.Equal(t, DefaultDeadlineHours, req.DeadlineHours)
	assert.Equal(t, DefaultDifficulty, req.Difficulty)
}

func TestValidateStartBounds(t *testing.T) {
	themes := []string{"Web App"}

	for _, hours := range []int{12, 48, 168} {
		req := StartRequest{Theme: "Web App", TeamSize: 2, DeadlineHours: hours}
		assert.NoError(t, ValidateStart(&req, themes), "hours=%d", hours)
	}
	for _, hours := range []int{11, 169} {
		req := StartRequest{Theme: "Web App", TeamSize: 2, DeadlineHours: hours}
		assert.Error(t, ValidateStart(&req, themes), "hours=%d", hours)
	}

	for _, size := range []int{2, 6} {
		req := StartRequest{Theme: "Web App", TeamSize: size}
		assert.NoError(t, ValidateStart(&req, themes), "size=%d", size)
	}
	for _, size := range []int{1, 7} {
		req := StartRequest{Theme: "Web App", TeamSize: size}
		assert.Error(t, ValidateStart(&req, themes), "size=%d", size)
	}
}

func TestValidateStartThemeCatalog(t *testing.T) {
	req := StartRequest{Theme: "Blockchain", TeamSize: 3}
	err := ValidateStart(&req, []string{"Web App"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Web App")
}
