package chunk

import (
	"reflect"
	"testing"
)

func TestCalculateChunkDepthsMatchesSpecExample(t *testing.T) {
	got := CalculateChunkDepths(20, 8)
	want := []int{7, 7, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CalculateChunkDepths(20, 8) = %v, want %v", got, want)
	}
}

func TestCalculateChunkDepthsWithinBoundReturnsSingleSegment(t *testing.T) {
	got := CalculateChunkDepths(5, 8)
	want := []int{5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CalculateChunkDepths(5, 8) = %v, want %v", got, want)
	}
}

func TestCalculateChunkDepthsExactMultiple(t *testing.T) {
	got := CalculateChunkDepths(16, 8)
	want := []int{8, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CalculateChunkDepths(16, 8) = %v, want %v", got, want)
	}
}

func TestCalculateChunkDepthsSumsToTreeDepth(t *testing.T) {
	for _, td := range []int{1, 7, 8, 9, 20, 33, 100} {
		depths := CalculateChunkDepths(td, 8)
		sum := 0
		for _, d := range depths {
			if d <= 0 || d > 8 {
				t.Fatalf("CalculateChunkDepths(%d, 8) produced out-of-bounds segment %d in %v", td, d, depths)
			}
			sum += d
		}
		if sum != td {
			t.Fatalf("CalculateChunkDepths(%d, 8) segments sum to %d, want %d", td, sum, td)
		}
	}
}

func TestCalculateChunkDepthsZeroTreeDepth(t *testing.T) {
	if got := CalculateChunkDepths(0, 8); got != nil {
		t.Fatalf("CalculateChunkDepths(0, 8) = %v, want nil", got)
	}
}
