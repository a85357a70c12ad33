package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncAllowAndBlock(t *testing.T) {
	reset()
	IncAllow()
	IncAllow()
	IncBlock("ip_blacklisted")
	IncBlock("ip_blacklisted")
	IncBlock("rate_limit_exceeded")

	allowed, byReason := Snapshot()
	assert.Equal(t, uint64(2), allowed)
	assert.Equal(t, uint64(2), byReason["ip_blacklisted"])
	assert.Equal(t, uint64(1), byReason["rate_limit_exceeded"])
}

func TestIncBlock_EmptyReasonFallsBackToUnknown(t *testing.T) {
	reset()
	IncBlock("")
	_, byReason := Snapshot()
	assert.Equal(t, uint64(1), byReason["unknown"])
}
