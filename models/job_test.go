package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJobPriority(t *testing.T) {
	assert.Equal(t, PriorityLow, ParseJobPriority("low"))
	assert.Equal(t, PriorityNormal, ParseJobPriority("normal"))
	assert.Equal(t, PriorityHigh, ParseJobPriority("high"))
	assert.Equal(t, PriorityCritical, ParseJobPriority("critical"))
	assert.Equal(t, PriorityNormal, ParseJobPriority(""))
	assert.Equal(t, PriorityNormal, ParseJobPriority("urgent"))
}

func TestPriorityOrdering(t *testing.T) {
	assert.True(t, PriorityCritical > PriorityHigh)
	assert.True(t, PriorityHigh > PriorityNormal)
	assert.True(t, PriorityNormal > PriorityLow)
}

func TestMatchScored(t *testing.T) {
	score := 1
	match := &Match{Status: MatchStatusFinished, HomeScore: &score, AwayScore: &score}
	assert.True(t, match.Scored())

	match.Status = MatchStatusScheduled
	assert.False(t, match.Scored())

	match.Status = MatchStatusFinished
	match.AwayScore = nil
	assert.False(t, match.Scored())

	var nilMatch *Match
	assert.False(t, nilMatch.Scored())
}
