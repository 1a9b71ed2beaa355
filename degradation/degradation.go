package degradation

import (
	"fmt"
	"math"

	"rfb/types"
)

// Species 衰减作用的目标物质。
type Species string

const (
	SpeciesOxidized Species = "ox"  // 氧化态
	SpeciesReduced  Species = "red" // 还原态
)

// ChemicalDegradation N 阶化学衰减：dc/dt = -k·c^n，作用于单一物质。
type ChemicalDegradation struct {
	RateOrder    int     // 反应级数
	RateConstant float64 // 速率常数 (M^(1-n)/s)
	Species      Species // 目标物质
}

// NewChemicalDegradation 构造 N 阶化学衰减机制并校验参数。
func NewChemicalDegradation(rateOrder int, rateConstant float64, species Species) (*ChemicalDegradation, error) {
	if rateOrder < 0 {
		return nil, fmt.Errorf("degradation: 'RateOrder' must be >= 0")
	}
	if rateConstant <= 0.0 {
		return nil, fmt.Errorf("degradation: 'RateConstant' must be > 0.0")
	}
	if species != SpeciesOxidized && species != SpeciesReduced {
		return nil, fmt.Errorf("degradation: species must be %q or %q", SpeciesOxidized, SpeciesReduced)
	}
	return &ChemicalDegradation{RateOrder: rateOrder, RateConstant: rateConstant, Species: species}, nil
}

// Degrade 对目标物质施加一个时间步的 N 阶衰减。
func (d *ChemicalDegradation) Degrade(cOx, cRed, timeIncrement float64) (float64, float64) {
	if d.Species == SpeciesReduced {
		cRed -= timeIncrement * d.RateConstant * math.Pow(cRed, float64(d.RateOrder))
	} else {
		cOx -= timeIncrement * d.RateConstant * math.Pow(cOx, float64(d.RateOrder))
	}
	return cOx, cRed
}

// AutoOxidation 还原态自发氧化：还原态按一阶速率转化为氧化态，总量守恒。
type AutoOxidation struct {
	RateConstant float64 // 速率常数 (1/s)
}

// NewAutoOxidation 构造自氧化机制。
func NewAutoOxidation(rateConstant float64) (*AutoOxidation, error) {
	if rateConstant <= 0.0 {
		return nil, fmt.Errorf("degradation: 'RateConstant' must be > 0.0")
	}
	return &AutoOxidation{RateConstant: rateConstant}, nil
}

// Degrade 将一个时间步内自氧化的还原态迁入氧化态。
func (d *AutoOxidation) Degrade(cOx, cRed, timeIncrement float64) (float64, float64) {
	delta := timeIncrement * d.RateConstant * cRed
	return cOx + delta, cRed - delta
}

// AutoReduction 氧化态自发还原：氧化态按一阶速率转化为还原态，总量守恒。
type AutoReduction struct {
	RateConstant float64 // 速率常数 (1/s)
}

// NewAutoReduction 构造自还原机制。
func NewAutoReduction(rateConstant float64) (*AutoReduction, error) {
	if rateConstant <= 0.0 {
		return nil, fmt.Errorf("degradation: 'RateConstant' must be > 0.0")
	}
	return &AutoReduction{RateConstant: rateConstant}, nil
}

// Degrade 将一个时间步内自还原的氧化态迁入还原态。
func (d *AutoReduction) Degrade(cOx, cRed, timeIncrement float64) (float64, float64) {
	delta := timeIncrement * d.RateConstant * cOx
	return cOx - delta, cRed + delta
}

// Dimerization 氧化态与还原态可逆二聚：
// dc_dimer/dt = kf·c_ox·c_red - kb·c_dimer，两单体等量消耗。
// 二聚体浓度是机制自身的状态，跨时间步保留。
type Dimerization struct {
	KForward  float64 // 正向速率常数 (1/(M·s))
	KBackward float64 // 逆向速率常数 (1/s)
	CDimer    float64 // 当前二聚体浓度 (M)
}

// NewDimerization 构造二聚机制，cDimer 为初始二聚体浓度。
func NewDimerization(kForward, kBackward, cDimer float64) (*Dimerization, error) {
	if kForward <= 0.0 || kBackward <= 0.0 {
		return nil, fmt.Errorf("degradation: dimerization rate constants must be > 0.0")
	}
	if cDimer < 0.0 {
		return nil, fmt.Errorf("degradation: 'CDimer' must be >= 0.0")
	}
	return &Dimerization{KForward: kForward, KBackward: kBackward, CDimer: cDimer}, nil
}

// Degrade 推进一个时间步的二聚/解聚平衡。
func (d *Dimerization) Degrade(cOx, cRed, timeIncrement float64) (float64, float64) {
	delta := timeIncrement * ((d.KForward * cOx * cRed) - (d.KBackward * d.CDimer))
	d.CDimer += delta
	return cOx - delta, cRed - delta
}

// Multi 顺序组合多个衰减机制，逐个施加于同一储液罐。
type Multi struct {
	Mechanisms []types.DegradationMechanism
}

// NewMulti 构造组合衰减机制。
func NewMulti(mechanisms ...types.DegradationMechanism) (*Multi, error) {
	if len(mechanisms) == 0 {
		return nil, fmt.Errorf("degradation: at least one mechanism is required")
	}
	for _, mech := range mechanisms {
		if mech == nil {
			return nil, fmt.Errorf("degradation: nil mechanism in list")
		}
	}
	return &Multi{Mechanisms: mechanisms}, nil
}

// Degrade 依次施加各成员机制。
func (d *Multi) Degrade(cOx, cRed, timeIncrement float64) (float64, float64) {
	for _, mech := range d.Mechanisms {
		cOx, cRed = mech.Degrade(cOx, cRed, timeIncrement)
	}
	return cOx, cRed
}
