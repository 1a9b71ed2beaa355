package cell

import (
	"errors"
	"fmt"
	"math"

	"rfb/types"
)

// ErrNegativeConcentration 检测到负浓度。
// 对数型过电位与开路电压在负浓度下没有物理意义，
// 调用方必须在浓度可能耗尽时先行检查 NegativeConcentrations。
var ErrNegativeConcentration = errors.New("negative concentration detected")

// Params 零维电池模型的构造参数。
// 体积单位 L，浓度单位 M，速率常数与传质系数单位 cm/s，
// 面积单位 cm^2，电阻单位 Ω，时间步长单位 s。
type Params struct {
	CLSVolume       float64 // CLS 储液罐体积
	NCLSVolume      float64 // NCLS 储液罐体积
	CLSStartCOx     float64 // CLS 氧化态初始浓度
	CLSStartCRed    float64 // CLS 还原态初始浓度
	NCLSStartCOx    float64 // NCLS 氧化态初始浓度
	NCLSStartCRed   float64 // NCLS 还原态初始浓度
	OCV50SOC        float64 // 半充电状态开路电压（形式电位差 E_+ - E_-）
	Resistance      float64 // 欧姆电阻
	K0CLS           float64 // CLS 电化学速率常数
	K0NCLS          float64 // NCLS 电化学速率常数
	AlphaCLS        float64 // CLS 电荷转移系数，开区间 (0,1)
	AlphaNCLS       float64 // NCLS 电荷转移系数，开区间 (0,1)
	GeometricArea   float64 // 电池几何面积
	CLSNegolyte     bool    // CLS 是否为负极电解液
	TimeIncrement   float64 // 仿真时间步长
	KMT             float64 // 传质系数
	RoughnessFactor float64 // 粗糙度因子（总表面积/几何表面积）
	ElectronsCLS    int     // CLS 单分子转移电子数
	ElectronsNCLS   int     // NCLS 单分子转移电子数
}

// DefaultParams 返回带默认值的构造参数。
// 默认值取自实验室常用单电子对称电池配置。
func DefaultParams() Params {
	return Params{
		AlphaCLS:        0.5,
		AlphaNCLS:       0.5,
		GeometricArea:   5.0,
		CLSNegolyte:     true,
		TimeIncrement:   0.01,
		KMT:             0.8,
		RoughnessFactor: 26.0,
		ElectronsCLS:    1,
		ElectronsNCLS:   1,
	}
}

// Model 氧化还原液流电池的零维（全混储液罐）模型。
// 持有四个物质浓度与固定的电池参数，
// 浓度仅通过 CoulombCount 变化，其余方法均为当前状态的纯函数。
type Model struct {
	CLSVolume     float64
	NCLSVolume    float64
	COxCLS        float64 // CLS 氧化态浓度 (M)
	CRedCLS       float64 // CLS 还原态浓度 (M)
	COxNCLS       float64 // NCLS 氧化态浓度 (M)
	CRedNCLS      float64 // NCLS 还原态浓度 (M)
	OCV50SOC      float64
	Resistance    float64
	K0CLS         float64
	K0NCLS        float64
	AlphaCLS      float64
	AlphaNCLS     float64
	GeometricArea float64
	CLSNegolyte   bool
	TimeIncrement float64
	KMT           float64

	// DeltaOx/DeltaRed 最近一次 CoulombCount 中渗透机制迁移的摩尔量 (mol)
	DeltaOx  float64
	DeltaRed float64

	constIEx float64 // F * 粗糙度 * 几何面积，交换电流公因子
	nCLS     int
	nNCLS    int

	// 步前浓度快照，供 RevertConcentrations 回滚无效步
	prevCOxCLS   float64
	prevCRedCLS  float64
	prevCOxNCLS  float64
	prevCRedNCLS float64
}

// New 构造零维模型并校验参数。
// 严格正参数为零或负、电荷转移系数越界、电阻或参考电压为负均返回错误。
func New(p Params) (*Model, error) {
	constIEx := types.Faraday * p.RoughnessFactor * p.GeometricArea

	for _, v := range []float64{p.CLSVolume, p.NCLSVolume, p.K0CLS, p.K0NCLS,
		p.GeometricArea, p.TimeIncrement, p.KMT, constIEx} {
		if v <= 0.0 {
			return nil, fmt.Errorf("cell: a strictly positive parameter has been set negative/zero")
		}
	}
	if p.OCV50SOC < 0.0 || p.Resistance < 0.0 {
		return nil, fmt.Errorf("cell: 'OCV50SOC' and 'Resistance' must be zero or positive")
	}
	if p.AlphaCLS <= 0.0 || p.AlphaCLS >= 1.0 || p.AlphaNCLS <= 0.0 || p.AlphaNCLS >= 1.0 {
		return nil, fmt.Errorf("cell: alpha parameters must be between 0.0 and 1.0")
	}
	if p.ElectronsCLS < 1 || p.ElectronsNCLS < 1 {
		return nil, fmt.Errorf("cell: electron counts must be >= 1")
	}

	m := &Model{
		CLSVolume:     p.CLSVolume,
		NCLSVolume:    p.NCLSVolume,
		COxCLS:        p.CLSStartCOx,
		CRedCLS:       p.CLSStartCRed,
		COxNCLS:       p.NCLSStartCOx,
		CRedNCLS:      p.NCLSStartCRed,
		OCV50SOC:      p.OCV50SOC,
		Resistance:    p.Resistance,
		K0CLS:         p.K0CLS,
		K0NCLS:        p.K0NCLS,
		AlphaCLS:      p.AlphaCLS,
		AlphaNCLS:     p.AlphaNCLS,
		GeometricArea: p.GeometricArea,
		CLSNegolyte:   p.CLSNegolyte,
		TimeIncrement: p.TimeIncrement,
		KMT:           p.KMT,
		constIEx:      constIEx,
		nCLS:          p.ElectronsCLS,
		nNCLS:         p.ElectronsNCLS,
	}
	m.snapshot()
	return m, nil
}

// ExchangeCurrent 计算两侧氧化还原电对的 Butler-Volmer 交换电流 (A)。
// i0 = n·F·A·粗糙度·k0·c_red^α·c_ox^(1-α)，乘 0.001 将 mol/L 换算为 mol/cm^3。
func (m *Model) ExchangeCurrent() (i0CLS, i0NCLS float64) {
	i0CLS = float64(m.nCLS) * m.constIEx * m.K0CLS * math.Pow(m.CRedCLS, m.AlphaCLS) *
		math.Pow(m.COxCLS, 1-m.AlphaCLS) * 0.001
	i0NCLS = float64(m.nNCLS) * m.constIEx * m.K0NCLS * math.Pow(m.CRedNCLS, m.AlphaNCLS) *
		math.Pow(m.COxNCLS, 1-m.AlphaNCLS) * 0.001
	return i0CLS, i0NCLS
}

// limitingCurrent 单侧储液罐的极限电流 i_lim = n·F·k_mt·c·A (A)。
func (m *Model) limitingCurrent(cLim float64, n int) float64 {
	return float64(n) * types.Faraday * m.KMT * cLim * m.GeometricArea * 0.001
}

// LimitingCurrents 按充放电方向选取各侧被消耗物质的浓度并计算极限电流。
// 分支由（CLS 是否负极液，是否充电）共同决定。
func (m *Model) LimitingCurrents(charge bool) (iLimCLS, iLimNCLS float64) {
	if (m.CLSNegolyte && charge) || (!m.CLSNegolyte && !charge) {
		iLimCLS = m.limitingCurrent(m.COxCLS, m.nCLS)
		iLimNCLS = m.limitingCurrent(m.CRedNCLS, m.nNCLS)
	} else {
		iLimCLS = m.limitingCurrent(m.CRedCLS, m.nCLS)
		iLimNCLS = m.limitingCurrent(m.COxNCLS, m.nNCLS)
	}
	return iLimCLS, iLimNCLS
}

// ActivationOverpotential 两侧合计的活化过电位 (V)。
// asinh 形式等价于 log(z+√(z²+1))。
func (m *Model) ActivationOverpotential(current, i0CLS, i0NCLS float64) float64 {
	zCLS := math.Abs(current) / (2 * i0CLS)
	zNCLS := math.Abs(current) / (2 * i0NCLS)
	return types.NernstConst * (math.Asinh(zNCLS) + math.Asinh(zCLS))
}

// MassTransportOverpotential 两侧合计的传质过电位 (V)。
// 对数修正项在负浓度下无定义，此处是对物理无效状态的首道防线。
func (m *Model) MassTransportOverpotential(charge bool, current, iLimCLS, iLimNCLS float64) (float64, error) {
	if m.NegativeConcentrations() {
		return 0, ErrNegativeConcentration
	}

	cTotCLS := m.CRedCLS + m.COxCLS
	cTotNCLS := m.CRedNCLS + m.COxNCLS
	i := math.Abs(current)

	var nMT float64
	if (m.CLSNegolyte && charge) || (!m.CLSNegolyte && !charge) {
		nMT = types.NernstConst * math.Log(
			(1-((cTotCLS*i)/((m.CRedCLS*iLimCLS)+(m.COxCLS*i))))*
				(1-((cTotNCLS*i)/((m.COxNCLS*iLimNCLS)+(m.CRedNCLS*i)))))
	} else {
		nMT = types.NernstConst * math.Log(
			(1-((cTotCLS*i)/((m.COxCLS*iLimCLS)+(m.CRedCLS*i))))*
				(1-((cTotNCLS*i)/((m.CRedNCLS*iLimNCLS)+(m.COxNCLS*i)))))
	}
	return nMT, nil
}

// TotalOverpotential 欧姆、活化与传质三项之和 (V)，并返回后两项分量。
func (m *Model) TotalOverpotential(current float64, charge bool, iLimCLS, iLimNCLS float64) (loss, nAct, nMT float64, err error) {
	i0CLS, i0NCLS := m.ExchangeCurrent()

	nOhmic := math.Abs(current) * m.Resistance
	nAct = m.ActivationOverpotential(current, i0CLS, i0NCLS)
	nMT, err = m.MassTransportOverpotential(charge, current, iLimCLS, iLimNCLS)
	if err != nil {
		return 0, 0, 0, err
	}

	return nOhmic + nAct + nMT, nAct, nMT, nil
}

// OpenCircuitVoltage 能斯特开路电压 (V)。
// 两个浓度比对数修正项的符号由 CLS 是否为负极液决定。
func (m *Model) OpenCircuitVoltage() (float64, error) {
	if m.NegativeConcentrations() {
		return 0, ErrNegativeConcentration
	}

	correction := types.NernstConst*math.Log(m.CRedCLS/m.COxCLS) +
		types.NernstConst*math.Log(m.COxNCLS/m.CRedNCLS)
	if m.CLSNegolyte {
		return m.OCV50SOC + correction, nil
	}
	return m.OCV50SOC - correction, nil
}

// CellVoltage 端电压：充电时过电位加到开路电压上，放电时从中扣除。
func (m *Model) CellVoltage(ocv, losses float64, charge bool) float64 {
	if charge {
		return ocv + losses
	}
	return ocv - losses
}

// CoulombCount 模型唯一的状态变更操作：按法拉第定律更新四个浓度。
// 先施加纯法拉第转移 Δ = I·Δt/(n·F·V)（符号随负极液归属翻转，两侧各自
// 在氧化态与还原态间对称迁移），再依次施加 CLS 衰减机制、NCLS 衰减机制
// 与渗透机制。返回渗透净迁移的氧化态/还原态摩尔量，无渗透机制时为 (0,0)。
// 更新前保留步前快照供 RevertConcentrations 使用。
func (m *Model) CoulombCount(current float64, clsDegradation, nclsDegradation types.DegradationMechanism, crossover types.CrossoverMechanism) (deltaOx, deltaRed float64) {
	m.snapshot()

	direction := 1.0
	if !m.CLSNegolyte {
		direction = -1.0
	}
	deltaCLS := ((m.TimeIncrement * current) / (float64(m.nCLS) * types.Faraday * m.CLSVolume)) * direction
	deltaNCLS := ((m.TimeIncrement * current) / (float64(m.nNCLS) * types.Faraday * m.NCLSVolume)) * direction

	cOxCLS := m.COxCLS - deltaCLS
	cRedCLS := m.CRedCLS + deltaCLS
	cOxNCLS := m.COxNCLS + deltaNCLS
	cRedNCLS := m.CRedNCLS - deltaNCLS

	if clsDegradation != nil {
		cOxCLS, cRedCLS = clsDegradation.Degrade(cOxCLS, cRedCLS, m.TimeIncrement)
	}
	if nclsDegradation != nil {
		cOxNCLS, cRedNCLS = nclsDegradation.Degrade(cOxNCLS, cRedNCLS, m.TimeIncrement)
	}
	if crossover != nil {
		cOxCLS, cRedCLS, cOxNCLS, cRedNCLS, deltaOx, deltaRed = crossover.Crossover(
			cOxCLS, cRedCLS, cOxNCLS, cRedNCLS, m.CLSVolume, m.NCLSVolume, m.TimeIncrement)
	}

	m.COxCLS = cOxCLS
	m.CRedCLS = cRedCLS
	m.COxNCLS = cOxNCLS
	m.CRedNCLS = cRedNCLS
	m.DeltaOx = deltaOx
	m.DeltaRed = deltaRed

	return deltaOx, deltaRed
}

// NegativeConcentrations 任一浓度为负时返回 true。
func (m *Model) NegativeConcentrations() bool {
	return m.COxCLS < 0.0 || m.CRedCLS < 0.0 || m.COxNCLS < 0.0 || m.CRedNCLS < 0.0
}

// RevertConcentrations 恢复步前浓度快照，
// 用于撤销产生了物理无效状态、不应被记录的一步。
func (m *Model) RevertConcentrations() {
	m.COxCLS = m.prevCOxCLS
	m.CRedCLS = m.prevCRedCLS
	m.COxNCLS = m.prevCOxNCLS
	m.CRedNCLS = m.prevCRedNCLS
}

// StateOfCharge 两侧储液罐的荷电状态 (%)。
// 任一侧物质总量为零时 ok 为 false。
func (m *Model) StateOfCharge() (socCLS, socNCLS float64, ok bool) {
	totCLS := m.COxCLS + m.CRedCLS
	totNCLS := m.COxNCLS + m.CRedNCLS
	if totCLS == 0.0 || totNCLS == 0.0 {
		return 0, 0, false
	}
	return (m.CRedCLS / totCLS) * 100, (m.CRedNCLS / totNCLS) * 100, true
}

func (m *Model) snapshot() {
	m.prevCOxCLS = m.COxCLS
	m.prevCRedCLS = m.CRedCLS
	m.prevCOxNCLS = m.COxNCLS
	m.prevCRedNCLS = m.CRedNCLS
}
