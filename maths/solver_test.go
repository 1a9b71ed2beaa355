package maths

import (
	"errors"
	"math"
	"testing"
)

// TestSolveScalarLinear 函数验证线性方程的求根。
func TestSolveScalarLinear(t *testing.T) {
	// 求解 2x - 4 = 0，预期根 x = 2
	f := func(x float64) float64 { return 2*x - 4 }

	root, err := SolveScalar(f, 10, 1e-10, 100)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root-2) > 1e-8 {
		t.Errorf("root is incorrect. Got %g, expected 2", root)
	}
}

// TestSolveScalarCubic 函数验证非线性方程的求根。
func TestSolveScalarCubic(t *testing.T) {
	// 求解 x^3 - x - 2 = 0，预期根 x ≈ 1.5213797068045676
	f := func(x float64) float64 { return x*x*x - x - 2 }

	root, err := SolveScalar(f, 1, 1e-10, 200)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root-1.5213797068045676) > 1e-6 {
		t.Errorf("root is incorrect. Got %g, expected 1.5213797068045676", root)
	}
}

// TestSolveScalarNegativeRoot 函数验证负数域的求根。
func TestSolveScalarNegativeRoot(t *testing.T) {
	// 求解 x + 5 = 0，预期根 x = -5
	f := func(x float64) float64 { return x + 5 }

	root, err := SolveScalar(f, -1, 1e-10, 100)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root+5) > 1e-8 {
		t.Errorf("root is incorrect. Got %g, expected -5", root)
	}
}

// TestSolveScalarWarmStart 函数验证初值已接近根时能立即收敛。
func TestSolveScalarWarmStart(t *testing.T) {
	f := func(x float64) float64 { return x*x - 2 }
	want := math.Sqrt2

	root, err := SolveScalar(f, want+1e-9, 1e-8, 10)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root-want) > 1e-6 {
		t.Errorf("root is incorrect. Got %g, expected %g", root, want)
	}
}

// TestSolveScalarNaNDomain 函数验证迭代落入无定义区域时能收缩回有效域。
func TestSolveScalarNaNDomain(t *testing.T) {
	// ln(x) 仅在 x > 0 有定义，预期根 x = 1
	root, err := SolveScalar(math.Log, 3, 1e-10, 200)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root-1) > 1e-6 {
		t.Errorf("root is incorrect. Got %g, expected 1", root)
	}
}

// TestSolveScalarResidualTolerance 函数验证陡峭过渡区的根满足残差容差：
// 步长先于残差收敛时不得提前接受近似根。
func TestSolveScalarResidualTolerance(t *testing.T) {
	// 根为 x = 1（两项均为奇函数且单调递增）
	f := func(x float64) float64 { return 2e-3*math.Tanh((x-1)/1e-4) + 1e-4*(x-1) }

	root, err := SolveScalar(f, 1.25, 1e-5, 200)
	if err != nil {
		t.Fatalf("SolveScalar failed: %v", err)
	}
	if math.Abs(root-1) > 1e-4 {
		t.Errorf("root is incorrect. Got %g, expected 1", root)
	}
	if r := math.Abs(f(root)); r > 1e-5 {
		t.Errorf("residual exceeds tolerance: |f(root)| = %g", r)
	}
}

// TestSolveScalarNoConvergence 函数验证无实根方程会返回不收敛错误。
func TestSolveScalarNoConvergence(t *testing.T) {
	// x^2 + 1 = 0 无实根
	f := func(x float64) float64 { return x*x + 1 }

	if _, err := SolveScalar(f, 1, 1e-10, 50); !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("expected ErrNoConvergence, got %v", err)
	}
}
