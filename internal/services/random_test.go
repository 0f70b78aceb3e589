package services_test

import (
	"testing"

	"spinroyale/internal/services"
)

func TestSourcesStayInRange(t *testing.T) {
	sources := map[string]services.RandomSource{
		"crypto": services.NewCryptoSource(),
		"seeded": services.NewSeededSource(99),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			counts := make([]int, 3)
			for i := 0; i < 3000; i++ {
				f := src.Float64()
				if f < 0 || f >= 1 {
					t.Fatalf("Float64 out of range: %v", f)
				}
				n := src.IntN(3)
				if n < 0 || n >= 3 {
					t.Fatalf("IntN out of range: %d", n)
				}
				counts[n]++
			}
			for v, c := range counts {
				if c < 800 || c > 1200 {
					t.Errorf("value %d drawn %d times out of 3000", v, c)
				}
			}
		})
	}
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a, b := services.NewSeededSource(5), services.NewSeededSource(5)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() || a.IntN(10) != b.IntN(10) {
			t.Fatalf("draw %d differs between equal seeds", i)
		}
	}
}

func TestSequenceSource(t *testing.T) {
	src := services.NewSequenceSource([]float64{0.5}, []int{2})
	if src.Float64() != 0.5 || src.IntN(3) != 2 {
		t.Fatal("sequence should replay scripted draws")
	}
	if f, i := src.Remaining(); f != 0 || i != 0 {
		t.Errorf("expected exhausted sequence, got %d/%d", f, i)
	}

	defer func() {
		if recover() == nil {
			t.Error("exhausted sequence should panic")
		}
	}()
	src.Float64()
}
