package embedding

import (
	"reflect"
	"testing"
)

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2, 3,
		3, 4, 5,
		100, 100, 100, // padding
	}
	tests := []struct {
		name string
		mask []int64
		want []float32
	}{
		{"masked padding", []int64{1, 1, 0}, []float32{2, 3, 4}},
		{"single token", []int64{1, 0, 0}, []float32{1, 2, 3}},
		{"empty mask", []int64{0, 0, 0}, []float32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := meanPool(hidden, tt.mask, 3); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("meanPool() = %v, want %v", got, tt.want)
			}
		})
	}
}
