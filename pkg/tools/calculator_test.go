package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorExpressions(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"12 * 8", "96"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-5 + 3", "-2"},
		{"2 ^ 10", "1024"},
		{"2 ** 3", "8"},
		{"10 % 3", "1"},
		{"1.5 * 2", "3"},
		{"((1 + 2) * (3 + 4))", "21"},
	}

	calc := NewCalculatorTool()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := calc.Execute(context.Background(), map[string]any{"expression": tt.expr})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing expression", map[string]any{}},
		{"empty expression", map[string]any{"expression": "  "}},
		{"division by zero", map[string]any{"expression": "1 / 0"}},
		{"unbalanced parens", map[string]any{"expression": "(1 + 2"}},
		{"trailing garbage", map[string]any{"expression": "1 + 2 apples"}},
		{"not a number", map[string]any{"expression": "hello"}},
	}

	calc := NewCalculatorTool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Execute(context.Background(), tt.args)
			assert.Error(t, err)
		})
	}
}
