package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusNext(t *testing.T) {
	for name, tc := range map[string]struct {
		from Status
		want Status
		ok   bool
	}{
		"pending advances to preparing": {from: StatusPending, want: StatusPreparing, ok: true},
		"preparing advances to ready":   {from: StatusPreparing, want: StatusReady, ok: true},
		"ready does not advance":        {from: StatusReady, want: StatusReady, ok: false},
		"served does not advance":       {from: StatusServed, want: StatusServed, ok: false},
		"staged does not advance":       {from: StatusStaged, want: StatusStaged, ok: false},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := tc.from.Next()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatusRankIsStrictlyForward(t *testing.T) {
	order := []Status{StatusStaged, StatusPending, StatusPreparing, StatusReady, StatusServed}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("preparing")
	assert.NoError(t, err)
	assert.Equal(t, StatusPreparing, s)

	_, err = ParseStatus("cooked")
	assert.Error(t, err)
}

func TestBillable(t *testing.T) {
	assert.True(t, StatusReady.Billable())
	assert.True(t, StatusServed.Billable())
	assert.False(t, StatusPending.Billable())
	assert.False(t, StatusPreparing.Billable())
	assert.False(t, StatusStaged.Billable())
}
