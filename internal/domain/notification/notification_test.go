package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Expires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(3 * time.Second).WithClock(func() time.Time { return now })

	n.Push(LevelSuccess, "profile saved")
	now = now.Add(2 * time.Second)
	n.Push(LevelError, "failed to export profile")

	pending := n.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "profile saved", pending[0].Message)
	assert.Equal(t, LevelError, pending[1].Level)

	now = now.Add(1 * time.Second)
	pending = n.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "failed to export profile", pending[0].Message)

	now = now.Add(5 * time.Second)
	assert.Empty(t, n.Pending())
}
