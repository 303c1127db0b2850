package audio

import (
	"math"
	"testing"
)

func TestF64ToF32(t *testing.T) {
	in := []float64{0.5, -0.25, 1.5, -2.0, 0}
	want := []float32{0.5, -0.25, 1.0, -1.0, 0}

	got := F64ToF32(in)
	if len(got) != len(want) {
		t.Fatalf("length %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v; want %v", i, got[i], want[i])
		}
	}
}

func TestF64ToF32_Precision(t *testing.T) {
	in := []float64{0.123456789, -0.987654321}
	got := F64ToF32(in)
	for i := range in {
		if math.Abs(float64(got[i])-in[i]) > 1e-6 {
			t.Errorf("sample %d = %v; want %v within float32 tolerance", i, got[i], in[i])
		}
	}
}

func TestMonoFromMatrix(t *testing.T) {
	tests := []struct {
		name string
		in   [][]float64
		want []float32
	}{
		{
			name: "single channel",
			in:   [][]float64{{0.1, 0.2, 0.3}},
			want: []float32{0.1, 0.2, 0.3},
		},
		{
			name: "channels by samples",
			in: [][]float64{
				{0.2, 0.4, 0.6},
				{0.0, 0.0, 0.0},
			},
			want: []float32{0.1, 0.2, 0.3},
		},
		{
			name: "samples by channels",
			in: [][]float64{
				{0.2, 0.0},
				{0.4, 0.0},
				{0.6, 0.0},
			},
			want: []float32{0.1, 0.2, 0.3},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonoFromMatrix(tt.in)
			if err != nil {
				t.Fatalf("MonoFromMatrix error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("length %d; want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("sample %d = %v; want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMonoFromMatrix_JaggedRows(t *testing.T) {
	tests := []struct {
		name string
		in   [][]float64
	}{
		{
			name: "short second channel",
			in: [][]float64{
				{0.1, 0.2, 0.3},
				{0.1, 0.2},
			},
		},
		{
			name: "short frame in samples-major layout",
			in: [][]float64{
				{0.1, 0.2},
				{0.1},
				{0.3, 0.4},
			},
		},
		{
			name: "empty row",
			in: [][]float64{
				{},
				{0.1, 0.2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MonoFromMatrix(tt.in); err == nil {
				t.Error("expected error for jagged matrix")
			}
		})
	}
}
