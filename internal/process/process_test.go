package process

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mpol-dev/visread/internal/ms"
)

func TestBroadcastWeights(t *testing.T) {
	w, err := ms.MatrixFrom(2, 2, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}

	cube, err := BroadcastWeights(w, 3)
	if err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
	if cube.NPol != 2 || cube.NChan != 3 || cube.NRow != 2 {
		t.Fatalf("unexpected shape [%d,%d,%d]", cube.NPol, cube.NChan, cube.NRow)
	}
	for ch := 0; ch < 3; ch++ {
		if got := cube.At(0, ch, 1); got != 2 {
			t.Fatalf("expected 2 at (0,%d,1), got %v", ch, got)
		}
		if got := cube.At(1, ch, 0); got != 3 {
			t.Fatalf("expected 3 at (1,%d,0), got %v", ch, got)
		}
	}
}

func TestBroadcastWeightsRejectsEmpty(t *testing.T) {
	_, err := BroadcastWeights(ms.Matrix[float64]{}, 4)
	if !ms.IsCode(err, ms.CodeShapeMismatch) {
		t.Fatalf("expected %s, got %v", ms.CodeShapeMismatch, err)
	}
}

func TestRescaleWeights(t *testing.T) {
	w, _ := ms.MatrixFrom(1, 2, []float64{8, 2})
	out := RescaleWeights(w, math.Sqrt2)
	if math.Abs(out.At(0, 0)-4) > 1e-12 {
		t.Fatalf("expected 4, got %v", out.At(0, 0))
	}
	if math.Abs(out.At(0, 1)-1) > 1e-12 {
		t.Fatalf("expected 1, got %v", out.At(0, 1))
	}
	// input untouched
	if w.At(0, 0) != 8 {
		t.Fatalf("input mutated: %v", w.At(0, 0))
	}
}

func TestSigma(t *testing.T) {
	if got := Sigma(4, 1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Sigma(4, math.Sqrt2); math.Abs(got-math.Sqrt2/2) > 1e-12 {
		t.Fatalf("expected sqrt(2)/2, got %v", got)
	}
}

func TestAverageDataPolarization(t *testing.T) {
	data, _ := ms.CubeFrom(2, 1, 1, []complex128{2, 4})
	w, _ := ms.MatrixFrom(2, 1, []float64{1, 3})

	avg, err := AverageDataPolarization(data, w)
	if err != nil {
		t.Fatalf("average failed: %v", err)
	}
	if avg.NPol != 1 {
		t.Fatalf("expected single polarization, got %d", avg.NPol)
	}
	if got := avg.At(0, 0, 0); cmplx.Abs(got-3.5) > 1e-12 {
		t.Fatalf("expected 3.5, got %v", got)
	}
}

func TestAverageDataPolarizationZeroWeight(t *testing.T) {
	data, _ := ms.CubeFrom(2, 1, 1, []complex128{2, 4})
	w, _ := ms.MatrixFrom(2, 1, []float64{0, 0})

	avg, err := AverageDataPolarization(data, w)
	if err != nil {
		t.Fatalf("average failed: %v", err)
	}
	if got := avg.At(0, 0, 0); cmplx.Abs(got-3) > 1e-12 {
		t.Fatalf("expected plain mean 3, got %v", got)
	}
}

func TestAverageDataPolarizationShapeMismatch(t *testing.T) {
	data, _ := ms.CubeFrom(2, 1, 2, make([]complex128, 4))
	w, _ := ms.MatrixFrom(2, 1, make([]float64, 2))

	_, err := AverageDataPolarization(data, w)
	if !ms.IsCode(err, ms.CodeShapeMismatch) {
		t.Fatalf("expected %s, got %v", ms.CodeShapeMismatch, err)
	}
}

func TestAverageWeightPolarization(t *testing.T) {
	w, _ := ms.MatrixFrom(2, 2, []float64{1, 2, 3, 4})
	out := AverageWeightPolarization(w)
	if out.NPol != 1 || out.NRow != 2 {
		t.Fatalf("unexpected shape [%d,%d]", out.NPol, out.NRow)
	}
	if out.At(0, 0) != 4 || out.At(0, 1) != 6 {
		t.Fatalf("expected summed weights [4 6], got [%v %v]", out.At(0, 0), out.At(0, 1))
	}
}

func TestAverageFlagPolarization(t *testing.T) {
	f, _ := ms.CubeFrom(2, 1, 2, []bool{true, false, false, false})
	out := AverageFlagPolarization(f)
	if !out.At(0, 0, 0) {
		t.Fatal("sample flagged in one polarization should stay flagged")
	}
	if out.At(0, 0, 1) {
		t.Fatal("clean sample should remain unflagged")
	}
}

func TestApplyFlags(t *testing.T) {
	data, _ := ms.CubeFrom(1, 2, 2, []complex128{1, 2, 3, 4})
	flags, _ := ms.CubeFrom(1, 2, 2, []bool{false, true, false, false})

	kept, err := ApplyFlags(data, flags)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept samples, got %d", len(kept))
	}
	if kept[0] != 1 || kept[1] != 3 || kept[2] != 4 {
		t.Fatalf("unexpected kept samples %v", kept)
	}
}

func TestApplyFlagsShapeMismatch(t *testing.T) {
	data, _ := ms.CubeFrom(1, 2, 2, make([]complex128, 4))
	flags, _ := ms.CubeFrom(1, 2, 1, make([]bool, 2))
	if _, err := ApplyFlags(data, flags); !ms.IsCode(err, ms.CodeShapeMismatch) {
		t.Fatalf("expected %s, got %v", ms.CodeShapeMismatch, err)
	}
}

func TestConvertBaselines(t *testing.T) {
	vals := []float64{100, -250}
	freqs := []float64{230e9, 231e9}

	g := ConvertBaselines(vals, freqs)
	if g.NChan != 2 || g.NRow != 2 {
		t.Fatalf("unexpected shape [%d,%d]", g.NChan, g.NRow)
	}
	want := 100 * (230e9 / SpeedOfLight)
	if math.Abs(g.At(0, 0)-want) > 1e-6 {
		t.Fatalf("expected %v, got %v", want, g.At(0, 0))
	}
	if g.At(1, 1) >= 0 {
		t.Fatal("negative baseline should stay negative")
	}
}

func TestConvertBaselinesKLambda(t *testing.T) {
	g := ConvertBaselines([]float64{1000}, []float64{230e9})
	kl := ConvertBaselinesKLambda([]float64{1000}, []float64{230e9})
	if math.Abs(kl.At(0, 0)-g.At(0, 0)/1e3) > 1e-9 {
		t.Fatalf("kilolambda should be lambda/1000: %v vs %v", kl.At(0, 0), g.At(0, 0))
	}
}

func TestCountFlagged(t *testing.T) {
	flags, _ := ms.CubeFrom(1, 2, 2, []bool{true, false, true, false})
	if got := CountFlagged(flags); got != 2 {
		t.Fatalf("expected 2 flagged, got %d", got)
	}
}
