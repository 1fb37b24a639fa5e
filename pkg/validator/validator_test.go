package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

type sample struct {
	Content string          `json:"content" validate:"required,notblank,max=10"`
	Price   decimal.Decimal `json:"price" validate:"gte=0"`
	Tags    []string        `json:"tags" validate:"omitempty,max=2"`
}

func TestValidateReportsJSONNames(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		in    sample
		field string
		want  string
	}{
		{"blank content", sample{Content: "   ", Price: decimal.NewFromInt(1)}, "content", "content must not be blank"},
		{"negative price", sample{Content: "ok", Price: decimal.RequireFromString("-0.01")}, "price", "price must be greater than or equal to 0"},
		{"long content", sample{Content: "0123456789ab"}, "content", "content must be at most 10 characters"},
		{"too many tags", sample{Content: "ok", Tags: []string{"a", "b", "c"}}, "tags", "tags must be at most 2 entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.in)
			if err == nil {
				t.Fatalf("expected a validation error")
			}
			got := v.FormatValidationErrors(err)
			if got[tt.field] != tt.want {
				t.Fatalf("want %q, got %v", tt.want, got)
			}
		})
	}

	if err := v.Validate(&sample{Content: "fine", Price: decimal.Zero}); err != nil {
		t.Fatalf("free item should validate: %v", err)
	}
}
