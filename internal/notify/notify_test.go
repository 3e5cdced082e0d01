package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seckill-client/internal/engine"
)

type captureNotifier struct {
	messages []string
}

func (c *captureNotifier) Notify(message string, severity engine.Severity) {
	c.messages = append(c.messages, message)
}

func TestGatedDeliversWithPermission(t *testing.T) {
	inner := &captureNotifier{}
	g := NewGated(inner, func() bool { return true })

	g.Notify("sale starts soon", engine.SeverityInfo)
	assert.Equal(t, []string{"sale starts soon"}, inner.messages)
}

func TestGatedSwallowsWithoutPermission(t *testing.T) {
	inner := &captureNotifier{}

	g := NewGated(inner, func() bool { return false })
	g.Notify("sale starts soon", engine.SeverityInfo)
	assert.Empty(t, inner.messages)

	// A nil permission check behaves as denied, never as a panic.
	g = NewGated(inner, nil)
	g.Notify("sale starts soon", engine.SeverityWarn)
	assert.Empty(t, inner.messages)
}

func TestGatedPermissionReadPerDelivery(t *testing.T) {
	inner := &captureNotifier{}
	allowed := false
	g := NewGated(inner, func() bool { return allowed })

	g.Notify("first", engine.SeverityInfo)
	allowed = true
	g.Notify("second", engine.SeverityInfo)

	assert.Equal(t, []string{"second"}, inner.messages)
}
