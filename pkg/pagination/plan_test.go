package pagination

import (
	"reflect"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		expected []Window
	}{
		{
			name:     "exact multiple",
			total:    40,
			pageSize: 20,
			expected: []Window{{0, 20}, {20, 20}},
		},
		{
			name:     "remainder page",
			total:    45,
			pageSize: 20,
			expected: []Window{{0, 20}, {20, 20}, {40, 5}},
		},
		{
			name:     "smaller than a page",
			total:    7,
			pageSize: 20,
			expected: []Window{{0, 7}},
		},
		{
			name:     "page size one",
			total:    3,
			pageSize: 1,
			expected: []Window{{0, 1}, {1, 1}, {2, 1}},
		},
		{
			name:     "zero total",
			total:    0,
			pageSize: 20,
			expected: nil,
		},
		{
			name:     "negative total",
			total:    -5,
			pageSize: 20,
			expected: nil,
		},
		{
			name:     "invalid page size",
			total:    10,
			pageSize: 0,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(tt.total, tt.pageSize)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Plan(%d, %d) = %v, want %v", tt.total, tt.pageSize, got, tt.expected)
			}
		})
	}
}

func TestPlan_CoversTotal(t *testing.T) {
	for total := 1; total <= 250; total++ {
		sum := 0
		next := 0
		for _, w := range Plan(total, DefaultPageSize) {
			if w.Start != next {
				t.Fatalf("Plan(%d): window starts at %d, want %d", total, w.Start, next)
			}
			if w.Count <= 0 || w.Count > DefaultPageSize {
				t.Fatalf("Plan(%d): window count %d out of range", total, w.Count)
			}
			sum += w.Count
			next += w.Count
		}
		if sum != total {
			t.Fatalf("Plan(%d) covers %d ids", total, sum)
		}
	}
}

func TestValidatePageSize(t *testing.T) {
	tests := []struct {
		size    int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{DefaultPageSize, false},
		{MaxPageSize, false},
		{MaxPageSize + 1, true},
	}

	for _, tt := range tests {
		err := ValidatePageSize(tt.size)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePageSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
		}
	}
}
