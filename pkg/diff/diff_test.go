package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/gorazor/pkg/diff"
)

type sample struct {
	Name  string
	Count int
	cache []string
}

func TestDiffExportedOnly(t *testing.T) {
	tests := []struct {
		name  string
		want  sample
		got   sample
		empty bool
	}{
		{name: "equal", want: sample{Name: "a", Count: 1}, got: sample{Name: "a", Count: 1}, empty: true},
		{name: "unexported ignored", want: sample{Name: "a", cache: []string{"x"}}, got: sample{Name: "a"}, empty: true},
		{name: "changed field", want: sample{Name: "a", Count: 1}, got: sample{Name: "a", Count: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diff.DiffExportedOnly(tt.want, tt.got)
			if tt.empty {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, "➕")
			assert.Contains(t, got, "➖")
			assert.Contains(t, got, "Count")
		})
	}
}
