package schedule

import (
	"testing"

	"github.com/tathienbao/futures-orders/internal/types"
)

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil, d("1"), 5, 5)
	if !summary.CompletionRate.IsZero() {
		t.Errorf("completion rate = %s, want 0", summary.CompletionRate)
	}
	if summary.OrdersFailed != 5 {
		t.Errorf("failed = %d, want 5", summary.OrdersFailed)
	}
}

func TestSummarize_AverageWeighted(t *testing.T) {
	fills := []types.SimulatedFill{
		{SliceIndex: 0, Price: d("100"), Quantity: d("3")},
		{SliceIndex: 1, Price: d("200"), Quantity: d("1")},
	}

	summary := Summarize(fills, d("4"), 2, 0)

	// (100*3 + 200*1) / 4 = 125
	if !summary.AveragePrice.Equal(d("125")) {
		t.Errorf("average = %s, want 125", summary.AveragePrice)
	}
	if !summary.MinPrice.Equal(d("100")) || !summary.MaxPrice.Equal(d("200")) {
		t.Errorf("min/max = %s/%s, want 100/200", summary.MinPrice, summary.MaxPrice)
	}
	if !summary.TotalValue.Equal(d("500")) {
		t.Errorf("total value = %s, want 500", summary.TotalValue)
	}
}

func TestSummarize_CompletionClamped(t *testing.T) {
	fills := []types.SimulatedFill{
		{SliceIndex: 0, Price: d("100"), Quantity: d("1.0000001")},
	}

	summary := Summarize(fills, d("1"), 1, 0)
	if !summary.CompletionRate.Equal(d("1")) {
		t.Errorf("completion rate = %s, want clamped to 1", summary.CompletionRate)
	}
}
