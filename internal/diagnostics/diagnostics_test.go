package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleReportsCoreCount(t *testing.T) {
	c := NewCollector()
	s := c.Sample()
	assert.Greater(t, s.CPUCores, 0)
	assert.False(t, s.Timestamp.IsZero())
}

func TestInterfacesSkipsLoopback(t *testing.T) {
	c := NewCollector()
	for _, ifc := range c.Interfaces() {
		assert.NotEqual(t, "lo", ifc.Name)
	}
}
