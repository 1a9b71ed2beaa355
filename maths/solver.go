package maths

import (
	"errors"
	"math"
)

// ErrNoConvergence 求解器在最大迭代次数内未收敛。
var ErrNoConvergence = errors.New("maths: solver did not converge")

// SolveScalar 求解标量非线性方程 f(x)=0。
// 以 guess 为初值的割线法迭代，一旦捕获到变号区间即退化为二分保底，
// 支持负数域。f 在无定义处应返回 NaN，求解器会向已知有效点收缩步长。
// 仅当 |f(x)| < tol 时返回根，否则返回 ErrNoConvergence；
// 步长收敛但残差超出容差不视为收敛。
func SolveScalar(f func(float64) float64, guess, tol float64, maxIterations int) (float64, error) {
	if tol <= 0 {
		tol = 1e-10
	}
	if maxIterations <= 0 {
		maxIterations = 200
	}

	x0 := guess
	f0 := f(x0)
	// 初值无定义时向零收缩
	for i := 0; i < 60 && math.IsNaN(f0); i++ {
		x0 *= 0.5
		f0 = f(x0)
	}
	if math.IsNaN(f0) {
		return 0, ErrNoConvergence
	}
	if math.Abs(f0) < tol {
		return x0, nil
	}

	// 割线法第二个初始点
	h := 1e-4*math.Abs(x0) + 1e-7
	x1 := x0 + h
	f1 := f(x1)
	for i := 0; i < 60 && math.IsNaN(f1); i++ {
		h *= 0.5
		x1 = x0 + h
		f1 = f(x1)
	}
	if math.IsNaN(f1) {
		return 0, ErrNoConvergence
	}

	// 变号区间 [a,b]，捕获后保证根不丢失；fa 记录 a 端符号
	var a, b, fa float64
	bracketed := false
	updateBracket := func(x, fx float64) {
		if bracketed {
			// 收紧区间
			if sameSign(fa, fx) {
				a, fa = x, fx
			} else {
				b = x
			}
			return
		}
		if !sameSign(f0, fx) {
			a, fa = x0, f0
			b = x
			bracketed = true
		}
	}
	updateBracket(x1, f1)

	for iter := 0; iter < maxIterations; iter++ {
		if math.Abs(f1) < tol {
			return x1, nil
		}

		var x2 float64
		if f1 != f0 {
			x2 = x1 - f1*(x1-x0)/(f1-f0)
		} else {
			x2 = math.NaN()
		}
		// 割线步无效或跳出已捕获区间时改用二分
		if bracketed && (math.IsNaN(x2) || math.IsInf(x2, 0) || x2 <= math.Min(a, b) || x2 >= math.Max(a, b)) {
			x2 = (a + b) / 2
		} else if math.IsNaN(x2) || math.IsInf(x2, 0) {
			return 0, ErrNoConvergence
		}

		f2 := f(x2)
		for i := 0; i < 60 && math.IsNaN(f2); i++ {
			// 无定义区域：向最近的有效点收缩
			x2 = (x2 + x1) / 2
			f2 = f(x2)
		}
		if math.IsNaN(f2) {
			return 0, ErrNoConvergence
		}

		updateBracket(x2, f2)
		if math.Abs(f2) < tol {
			return x2, nil
		}

		x0, f0 = x1, f1
		x1, f1 = x2, f2
	}

	return 0, ErrNoConvergence
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
