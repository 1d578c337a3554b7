package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionOf(t *testing.T) {
	err := NewCondition(ConditionSyncFailed, "exit status 23")
	wrapped := WithContext("outer", WithContext("inner", err))

	condition, ok := ConditionOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ConditionSyncFailed, condition)

	_, ok = ConditionOf(New("plain error"))
	assert.False(t, ok)
}

func TestIsCondition(t *testing.T) {
	err := WithContext("step", NewCondition(ConditionNotFound, "no volume"))

	assert.True(t, IsCondition(err, ConditionNotFound))
	assert.False(t, IsCondition(err, ConditionConflict))
	assert.False(t, IsCondition(New("plain error"), ConditionNotFound))
}

func TestConditionErrorMessage(t *testing.T) {
	err := NewCondition(ConditionConvergenceTimeout, "volume %q never bound", "app-data")
	assert.EqualError(t, err, `ConvergenceTimeout: volume "app-data" never bound`)
}
