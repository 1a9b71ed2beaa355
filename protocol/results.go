package protocol

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"rfb/cell"
)

// Results 一次完整循环实验的结果容器。
// 按步索引的时间序列在创建时按 duration/timeIncrement 预分配，
// 提前终止时未使用的尾部被截断；按半循环的容量/时间列表动态增长。
// 一次 Run 创建一个实例，逐步追加，结束后返回调用方，不复用。
type Results struct {
	Duration      float64 // 仿真时长 (s)
	TimeIncrement float64 // 时间步长 (s)
	ChargeFirst   bool    // 首个半循环是否为充电
	Size          int     // 预分配的最大步数
	Step          int     // 已记录的步数

	StepTime     []float64 // 步末时刻 (s)
	StepIsCharge []bool    // 该步充放电方向

	Current     []float64 // 电流 (A)
	CellVoltage []float64 // 端电压 (V)
	OCV         []float64 // 开路电压 (V)

	COxCLS   []float64 // CLS 氧化态浓度 (M)
	CRedCLS  []float64 // CLS 还原态浓度 (M)
	COxNCLS  []float64 // NCLS 氧化态浓度 (M)
	CRedNCLS []float64 // NCLS 还原态浓度 (M)
	DeltaOx  []float64 // 渗透迁移氧化态摩尔量 (mol)
	DeltaRed []float64 // 渗透迁移还原态摩尔量 (mol)
	SOCCLS   []float64 // CLS 荷电状态 (%)
	SOCNCLS  []float64 // NCLS 荷电状态 (%)

	Activation    []float64 // 活化过电位 (V)
	MassTransport []float64 // 传质过电位 (V)
	Loss          []float64 // 总过电位 (V)

	HalfCycles             int       // 已完成的半循环数
	HalfCycleCapacity      []float64 // 各半循环容量 (C)
	HalfCycleTime          []float64 // 各半循环结束时刻 (s)
	HalfCycleIsCharge      []bool    // 各半循环方向
	ChargeCycleCapacity    []float64 // 充电半循环容量 (C)
	ChargeCycleTime        []float64 // 充电半循环结束时刻 (s)
	DischargeCycleCapacity []float64 // 放电半循环容量 (C)
	DischargeCycleTime     []float64 // 放电半循环结束时刻 (s)

	// FinalStatus 运行终止时的状态
	FinalStatus CycleStatus

	capacity   float64 // 当前半循环累计容量 (C)
	computeSOC bool    // 任一侧总量归零后停止记录荷电状态
}

func newResults(duration, timeIncrement float64, chargeFirst bool) *Results {
	size := int(duration / timeIncrement)
	return &Results{
		Duration:      duration,
		TimeIncrement: timeIncrement,
		ChargeFirst:   chargeFirst,
		Size:          size,
		computeSOC:    true,

		StepTime:     make([]float64, size),
		StepIsCharge: make([]bool, size),

		Current:     make([]float64, size),
		CellVoltage: make([]float64, size),
		OCV:         make([]float64, size),

		COxCLS:   make([]float64, size),
		CRedCLS:  make([]float64, size),
		COxNCLS:  make([]float64, size),
		CRedNCLS: make([]float64, size),
		DeltaOx:  make([]float64, size),
		DeltaRed: make([]float64, size),
		SOCCLS:   make([]float64, size),
		SOCNCLS:  make([]float64, size),

		Activation:    make([]float64, size),
		MassTransport: make([]float64, size),
		Loss:          make([]float64, size),
	}
}

// recordStep 记录一个被接受的时间步。
func (r *Results) recordStep(m *cell.Model, charge bool, current, cellV, ocv, nAct, nMT, loss float64) {
	r.capacity += math.Abs(current) * m.TimeIncrement

	r.Current[r.Step] = current
	r.CellVoltage[r.Step] = cellV
	r.OCV[r.Step] = ocv
	r.StepIsCharge[r.Step] = charge

	r.Activation[r.Step] = nAct
	r.MassTransport[r.Step] = nMT
	r.Loss[r.Step] = loss

	r.COxCLS[r.Step] = m.COxCLS
	r.CRedCLS[r.Step] = m.CRedCLS
	r.COxNCLS[r.Step] = m.COxNCLS
	r.CRedNCLS[r.Step] = m.CRedNCLS
	r.DeltaOx[r.Step] = m.DeltaOx
	r.DeltaRed[r.Step] = m.DeltaRed

	if r.computeSOC {
		socCLS, socNCLS, ok := m.StateOfCharge()
		if !ok {
			r.computeSOC = false
		} else {
			r.SOCCLS[r.Step] = socCLS
			r.SOCNCLS[r.Step] = socNCLS
		}
	}

	r.StepTime[r.Step] = r.TimeIncrement * float64(r.Step+1)
	r.Step++
}

// recordHalfCycle 关闭当前半循环：记录容量与时刻并清零累计容量。
func (r *Results) recordHalfCycle(charge bool) {
	t := float64(r.Step) * r.TimeIncrement
	r.HalfCycleCapacity = append(r.HalfCycleCapacity, r.capacity)
	r.HalfCycleTime = append(r.HalfCycleTime, t)
	r.HalfCycleIsCharge = append(r.HalfCycleIsCharge, charge)
	r.HalfCycles++

	if charge {
		r.ChargeCycleCapacity = append(r.ChargeCycleCapacity, r.capacity)
		r.ChargeCycleTime = append(r.ChargeCycleTime, t)
	} else {
		r.DischargeCycleCapacity = append(r.DischargeCycleCapacity, r.capacity)
		r.DischargeCycleTime = append(r.DischargeCycleTime, t)
	}

	r.capacity = 0.0
}

// truncate 截断提前终止后预分配序列的未使用尾部。
func (r *Results) truncate() {
	n := r.Step
	r.StepTime = r.StepTime[:n]
	r.StepIsCharge = r.StepIsCharge[:n]
	r.Current = r.Current[:n]
	r.CellVoltage = r.CellVoltage[:n]
	r.OCV = r.OCV[:n]
	r.COxCLS = r.COxCLS[:n]
	r.CRedCLS = r.CRedCLS[:n]
	r.COxNCLS = r.COxNCLS[:n]
	r.CRedNCLS = r.CRedNCLS[:n]
	r.DeltaOx = r.DeltaOx[:n]
	r.DeltaRed = r.DeltaRed[:n]
	r.SOCCLS = r.SOCCLS[:n]
	r.SOCNCLS = r.SOCNCLS[:n]
	r.Activation = r.Activation[:n]
	r.MassTransport = r.MassTransport[:n]
	r.Loss = r.Loss[:n]
}

// TotalChargeCapacity 全部充电半循环的容量之和 (C)。
func (r *Results) TotalChargeCapacity() float64 {
	return floats.Sum(r.ChargeCycleCapacity)
}

// TotalDischargeCapacity 全部放电半循环的容量之和 (C)。
func (r *Results) TotalDischargeCapacity() float64 {
	return floats.Sum(r.DischargeCycleCapacity)
}

// CoulombicEfficiency 逐循环的库伦效率（放电容量/前一充电容量）。
func (r *Results) CoulombicEfficiency() []float64 {
	n := len(r.ChargeCycleCapacity)
	if len(r.DischargeCycleCapacity) < n {
		n = len(r.DischargeCycleCapacity)
	}
	eff := make([]float64, n)
	for i := 0; i < n; i++ {
		eff[i] = r.DischargeCycleCapacity[i] / r.ChargeCycleCapacity[i]
	}
	return eff
}
