package cell

import (
	"errors"
	"math"
	"testing"

	"rfb/types"
)

// testParams 返回测试常用的对称单电子电池参数。
func testParams() Params {
	p := DefaultParams()
	p.CLSVolume = 0.005
	p.NCLSVolume = 0.05
	p.CLSStartCOx = 0.01
	p.CLSStartCRed = 0.01
	p.NCLSStartCOx = 0.01
	p.NCLSStartCRed = 0.01
	p.OCV50SOC = 0.0
	p.Resistance = 1.0
	p.K0CLS = 1e-3
	p.K0NCLS = 1e-3
	return p
}

// TestNewValidation 函数验证构造参数校验能拒绝各类非法输入。
func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"零体积", func(p *Params) { p.CLSVolume = 0 }},
		{"负体积", func(p *Params) { p.NCLSVolume = -0.05 }},
		{"零速率常数", func(p *Params) { p.K0CLS = 0 }},
		{"零传质系数", func(p *Params) { p.KMT = 0 }},
		{"零时间步长", func(p *Params) { p.TimeIncrement = 0 }},
		{"负电阻", func(p *Params) { p.Resistance = -1 }},
		{"负参考电压", func(p *Params) { p.OCV50SOC = -0.1 }},
		{"alpha 越界下", func(p *Params) { p.AlphaCLS = 0 }},
		{"alpha 越界上", func(p *Params) { p.AlphaNCLS = 1 }},
		{"电子数为零", func(p *Params) { p.ElectronsCLS = 0 }},
	}
	for _, tc := range cases {
		p := testParams()
		tc.mutate(&p)
		if _, err := New(p); err == nil {
			t.Errorf("%s: New should have failed but did not", tc.name)
		}
	}

	if _, err := New(testParams()); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

// TestCoulombCountConservation 函数验证无衰减/渗透时库伦计数保持各侧物质总量守恒。
func TestCoulombCountConservation(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}

	totCLS := m.COxCLS + m.CRedCLS
	totNCLS := m.COxNCLS + m.CRedNCLS

	for i := 0; i < 100; i++ {
		m.CoulombCount(0.05, nil, nil, nil)
	}

	if math.Abs((m.COxCLS+m.CRedCLS)-totCLS) > 1e-12 {
		t.Errorf("CLS total not conserved: got %g, expected %g", m.COxCLS+m.CRedCLS, totCLS)
	}
	if math.Abs((m.COxNCLS+m.CRedNCLS)-totNCLS) > 1e-12 {
		t.Errorf("NCLS total not conserved: got %g, expected %g", m.COxNCLS+m.CRedNCLS, totNCLS)
	}

	// 负极液充电（正电流）应生成还原态
	if m.CRedCLS <= 0.01 {
		t.Errorf("charging a negolyte CLS should raise c_red, got %g", m.CRedCLS)
	}
}

// TestCoulombCountDelta 函数验证单步法拉第转移量符合 Δ = I·Δt/(F·V)。
func TestCoulombCountDelta(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}

	current := 0.05
	m.CoulombCount(current, nil, nil, nil)

	delta := (m.TimeIncrement * current) / (types.Faraday * m.CLSVolume)
	if math.Abs(m.CRedCLS-(0.01+delta)) > 1e-15 {
		t.Errorf("CLS c_red is incorrect. Got %g, expected %g", m.CRedCLS, 0.01+delta)
	}
	if math.Abs(m.COxCLS-(0.01-delta)) > 1e-15 {
		t.Errorf("CLS c_ox is incorrect. Got %g, expected %g", m.COxCLS, 0.01-delta)
	}
}

// TestRevertConcentrations 函数验证回滚能恢复步前的四个浓度。
func TestRevertConcentrations(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}

	m.CoulombCount(0.05, nil, nil, nil)
	before := [4]float64{m.COxCLS, m.CRedCLS, m.COxNCLS, m.CRedNCLS}

	m.CoulombCount(1000.0, nil, nil, nil)
	if !m.NegativeConcentrations() {
		t.Fatal("expected negative concentrations after an oversized step")
	}
	m.RevertConcentrations()

	after := [4]float64{m.COxCLS, m.CRedCLS, m.COxNCLS, m.CRedNCLS}
	if before != after {
		t.Errorf("revert mismatch: got %v, expected %v", after, before)
	}
}

// TestOpenCircuitVoltageSignFlip 函数验证负极液归属翻转时对数修正项取反。
func TestOpenCircuitVoltageSignFlip(t *testing.T) {
	p := testParams()
	p.CLSStartCOx = 0.02
	p.CLSStartCRed = 0.005
	p.NCLSStartCOx = 0.008
	p.NCLSStartCRed = 0.015

	negolyte, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	p.CLSNegolyte = false
	posolyte, err := New(p)
	if err != nil {
		t.Fatal(err)
	}

	ocvNeg, err := negolyte.OpenCircuitVoltage()
	if err != nil {
		t.Fatal(err)
	}
	ocvPos, err := posolyte.OpenCircuitVoltage()
	if err != nil {
		t.Fatal(err)
	}

	// 参考电压为零时两者应互为相反数
	if math.Abs(ocvNeg+ocvPos) > 1e-12 {
		t.Errorf("OCV corrections should be opposite: %g vs %g", ocvNeg, ocvPos)
	}
}

// TestOpenCircuitVoltageSymmetric 函数验证对称浓度下开路电压等于参考电压。
func TestOpenCircuitVoltageSymmetric(t *testing.T) {
	p := testParams()
	p.OCV50SOC = 1.2

	m, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	ocv, err := m.OpenCircuitVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ocv-1.2) > 1e-12 {
		t.Errorf("OCV is incorrect. Got %g, expected 1.2", ocv)
	}
}

// TestLimitingCurrents 函数验证极限电流按充放电方向选取被消耗物质的浓度。
func TestLimitingCurrents(t *testing.T) {
	p := testParams()
	p.CLSStartCOx = 0.02
	p.CLSStartCRed = 0.005
	p.NCLSStartCOx = 0.008
	p.NCLSStartCRed = 0.015

	m, err := New(p)
	if err != nil {
		t.Fatal(err)
	}

	iLim := func(c float64) float64 {
		return types.Faraday * p.KMT * c * p.GeometricArea * 0.001
	}

	// 负极液 CLS 充电消耗氧化态，NCLS 消耗还原态
	iLimCLS, iLimNCLS := m.LimitingCurrents(true)
	if math.Abs(iLimCLS-iLim(0.02)) > 1e-12 || math.Abs(iLimNCLS-iLim(0.015)) > 1e-12 {
		t.Errorf("charge limits incorrect: got (%g, %g)", iLimCLS, iLimNCLS)
	}

	// 放电方向互换
	iLimCLS, iLimNCLS = m.LimitingCurrents(false)
	if math.Abs(iLimCLS-iLim(0.005)) > 1e-12 || math.Abs(iLimNCLS-iLim(0.008)) > 1e-12 {
		t.Errorf("discharge limits incorrect: got (%g, %g)", iLimCLS, iLimNCLS)
	}
}

// TestOverpotentialMonotonic 函数验证总过电位随电流幅值单调增加。
func TestOverpotentialMonotonic(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	iLimCLS, iLimNCLS := m.LimitingCurrents(true)

	prev := 0.0
	for _, current := range []float64{0.01, 0.02, 0.05, 0.1} {
		loss, nAct, nMT, err := m.TotalOverpotential(current, true, iLimCLS, iLimNCLS)
		if err != nil {
			t.Fatalf("TotalOverpotential failed at %g A: %v", current, err)
		}
		if loss <= prev {
			t.Errorf("losses should grow with current: %g A -> %g V", current, loss)
		}
		// 活化项为正，传质修正项（浓度比对数）为负
		if nAct <= 0 || nMT >= 0 {
			t.Errorf("unexpected component signs, got act=%g mt=%g", nAct, nMT)
		}
		prev = loss
	}
}

// TestNegativeConcentrationErrors 函数验证负浓度下对数型计算返回哨兵错误。
func TestNegativeConcentrationErrors(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	m.CRedCLS = -0.001

	if _, err := m.OpenCircuitVoltage(); !errors.Is(err, ErrNegativeConcentration) {
		t.Errorf("OpenCircuitVoltage: expected ErrNegativeConcentration, got %v", err)
	}
	iLimCLS, iLimNCLS := m.LimitingCurrents(true)
	if _, _, _, err := m.TotalOverpotential(0.01, true, iLimCLS, iLimNCLS); !errors.Is(err, ErrNegativeConcentration) {
		t.Errorf("TotalOverpotential: expected ErrNegativeConcentration, got %v", err)
	}
}

// TestCellVoltage 函数验证充放电方向下损耗的加减方向。
func TestCellVoltage(t *testing.T) {
	m, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	if v := m.CellVoltage(1.0, 0.1, true); math.Abs(v-1.1) > 1e-15 {
		t.Errorf("charge voltage is incorrect. Got %g, expected 1.1", v)
	}
	if v := m.CellVoltage(1.0, 0.1, false); math.Abs(v-0.9) > 1e-15 {
		t.Errorf("discharge voltage is incorrect. Got %g, expected 0.9", v)
	}
}

// TestStateOfCharge 函数验证荷电状态计算与总量归零时的哨兵返回。
func TestStateOfCharge(t *testing.T) {
	p := testParams()
	p.CLSStartCOx = 0.015
	p.CLSStartCRed = 0.005

	m, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	socCLS, socNCLS, ok := m.StateOfCharge()
	if !ok {
		t.Fatal("StateOfCharge should be computable")
	}
	if math.Abs(socCLS-25.0) > 1e-12 || math.Abs(socNCLS-50.0) > 1e-12 {
		t.Errorf("SOC is incorrect. Got (%g, %g), expected (25, 50)", socCLS, socNCLS)
	}

	m.COxCLS, m.CRedCLS = 0, 0
	if _, _, ok := m.StateOfCharge(); ok {
		t.Error("StateOfCharge should report not-ok when a reservoir is empty")
	}
}
