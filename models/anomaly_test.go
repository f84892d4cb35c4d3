package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRankOrdering(t *testing.T) {
	assert.Less(t, SeverityRank(SeverityLow), SeverityRank(SeverityMedium))
	assert.Less(t, SeverityRank(SeverityMedium), SeverityRank(SeverityHigh))
	assert.Less(t, SeverityRank(SeverityHigh), SeverityRank(SeverityCritical))
}

func TestSeverityRankUnknown(t *testing.T) {
	assert.Equal(t, -1, SeverityRank(""))
	assert.Equal(t, -1, SeverityRank("apocalyptic"))

	// unknown severities rank below every known level, so a threshold
	// comparison never promotes them
	assert.Less(t, SeverityRank("apocalyptic"), SeverityRank(SeverityLow))
}
