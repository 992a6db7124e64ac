package tokenbudget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/researchmesh/citeforge/internal/llm"
)

func TestCounter_ChargeAndRemaining(t *testing.T) {
	c := NewCounter(100, llm.NewFake())

	assert.Equal(t, 100, c.Remaining())
	c.Charge(40)
	assert.Equal(t, 60, c.Remaining())
	assert.Equal(t, 40, c.Spent())
}

func TestCounter_WouldExceed(t *testing.T) {
	c := NewCounter(100, llm.NewFake())
	c.Charge(90)

	assert.False(t, c.WouldExceed(10))
	assert.True(t, c.WouldExceed(11))
}

func TestCounter_ExceedsBudgetProjection(t *testing.T) {
	c := NewCounter(1000, llm.NewFake())
	c.Charge(400)

	assert.False(t, c.ExceedsBudget(c.ProjectedTotal(500)))
	assert.True(t, c.ExceedsBudget(c.ProjectedTotal(700)))
}
