package protocol

import (
	"fmt"
	"math"

	"rfb/cell"
	"rfb/maths"
	"rfb/types"
)

// lowCapacityFloor 半循环容量下限 (C)，配合半循环计数防止在初始暂态误触发。
const lowCapacityFloor = 1.0

// updateFunc 绑定了衰减/渗透机制的浓度更新闭包（库伦计数）。
type updateFunc func(current float64) (deltaOx, deltaRed float64)

// CycleMode 单个半循环的控制器。
// Validate 在步进开始前做一次可行性检查；
// CycleStep 推进一个时间步并报告继续/终止状态，求解失败作为错误返回。
type CycleMode interface {
	Validate() CycleStatus
	CycleStep() (CycleStatus, error)
	// Charge 本半循环方向
	Charge() bool
	// Current 当前电流估计（恒压模式为上一步解出的电流）
	Current() float64
	// CurrentLimits 构造时按当时浓度计算的两侧极限电流
	CurrentLimits() (iLimCLS, iLimNCLS float64)
}

// cycleModeBase 两种循环模式共享的字段与检查逻辑。
type cycleModeBase struct {
	charge         bool
	model          *cell.Model
	results        *Results
	update         updateFunc
	currentLimCLS  float64
	currentLimNCLS float64
}

// newCycleModeBase 极限电流传零值时按当前浓度与方向重新计算。
func newCycleModeBase(charge bool, m *cell.Model, r *Results, update updateFunc, currentLimCLS, currentLimNCLS float64) cycleModeBase {
	if currentLimCLS == 0 || currentLimNCLS == 0 {
		currentLimCLS, currentLimNCLS = m.LimitingCurrents(charge)
	}
	return cycleModeBase{
		charge:         charge,
		model:          m,
		results:        r,
		update:         update,
		currentLimCLS:  currentLimCLS,
		currentLimNCLS: currentLimNCLS,
	}
}

func (b *cycleModeBase) Charge() bool { return b.charge }

func (b *cycleModeBase) CurrentLimits() (float64, float64) {
	return b.currentLimCLS, b.currentLimNCLS
}

// checkCapacity 半循环容量低于下限且已完成两个以上半循环时改写为低容量终止。
func (b *cycleModeBase) checkCapacity(status CycleStatus) CycleStatus {
	if b.results.capacity < lowCapacityFloor && b.results.HalfCycles > 2 {
		return StatusLowCapacity
	}
	return status
}

// checkTime 正常状态下步数到达预分配容量时改写为时长终止。
func (b *cycleModeBase) checkTime(status CycleStatus) CycleStatus {
	if status != StatusNormal {
		return status
	}
	if b.results.Step >= b.results.Size {
		return StatusTimeDurationReached
	}
	return StatusNormal
}

// ConstantCurrentMode 恒流半循环：每步施加固定电流。
type ConstantCurrentMode struct {
	cycleModeBase
	current      float64
	voltageLimit float64
	// voltageLimitCapacityCheck 在 CC 即将交接给 CV 的场景下置 false，
	// 抑制过早的低容量终止
	voltageLimitCapacityCheck bool
}

// NewConstantCurrentMode 构造恒流半循环控制器。
func NewConstantCurrentMode(charge bool, m *cell.Model, r *Results, update updateFunc, current, voltageLimit float64, voltageLimitCapacityCheck bool) *ConstantCurrentMode {
	return &ConstantCurrentMode{
		cycleModeBase:             newCycleModeBase(charge, m, r, update, 0, 0),
		current:                   current,
		voltageLimit:              voltageLimit,
		voltageLimitCapacityCheck: voltageLimitCapacityCheck,
	}
}

func (c *ConstantCurrentMode) Current() float64 { return c.current }

// Validate 步进前快速失败：需求电流不低于极限电流，
// 或按步前浓度计算的端电压已越过电压限。
func (c *ConstantCurrentMode) Validate() CycleStatus {
	if math.Abs(c.current) >= math.Min(c.currentLimCLS, c.currentLimNCLS) {
		return StatusLimitingCurrentReached
	}

	losses, _, _, err := c.model.TotalOverpotential(c.current, c.charge, c.currentLimCLS, c.currentLimNCLS)
	if err != nil {
		return StatusNegativeConcentrations
	}
	ocv, err := c.model.OpenCircuitVoltage()
	if err != nil {
		return StatusNegativeConcentrations
	}
	cellV := c.model.CellVoltage(ocv, losses, c.charge)

	if math.Abs(cellV) >= math.Abs(c.voltageLimit) {
		return StatusVoltageLimitReached
	}
	return StatusNormal
}

// CycleStep 施加一步库伦计数。产生负浓度时回滚且不记录；
// 否则按步后浓度计算过电位与端电压，越过电压限时标记（可选容量检查），
// 记录该步并返回经时长检查的状态。
// 预分配序列已写满时直接返回时长终止，不再更新浓度；
// 上一半循环恰在最后一步被电压限等状态截断时会走到这里。
func (c *ConstantCurrentMode) CycleStep() (CycleStatus, error) {
	if status := c.checkTime(StatusNormal); status != StatusNormal {
		return status, nil
	}

	c.update(c.current)

	if c.model.NegativeConcentrations() {
		c.model.RevertConcentrations()
		return c.checkCapacity(StatusNegativeConcentrations), nil
	}

	losses, nAct, nMT, err := c.model.TotalOverpotential(c.current, c.charge, c.currentLimCLS, c.currentLimNCLS)
	if err != nil {
		return StatusNormal, fmt.Errorf("constant current step: %w", err)
	}
	ocv, err := c.model.OpenCircuitVoltage()
	if err != nil {
		return StatusNormal, fmt.Errorf("constant current step: %w", err)
	}
	cellV := c.model.CellVoltage(ocv, losses, c.charge)

	status := StatusNormal
	if math.Abs(cellV) >= math.Abs(c.voltageLimit) {
		status = StatusVoltageLimitReached
		if c.voltageLimitCapacityCheck {
			status = c.checkCapacity(status)
		}
	}

	c.results.recordStep(c.model, c.charge, c.current, cellV, ocv, nAct, nMT, losses)

	return c.checkTime(status), nil
}

// ConstantVoltageMode 恒压半循环：端电压固定为电压限，每步解出电流。
type ConstantVoltageMode struct {
	cycleModeBase
	currentCutoff float64
	voltageLimit  float64
	current       float64
}

// NewConstantVoltageMode 构造恒压半循环控制器。
// currentEstimate 为求解器热启动初值（可传上一半循环的末电流）；
// 极限电流传零值时按当前浓度重新计算，CCCV 的 CC→CV 交接会带入已算好的值。
func NewConstantVoltageMode(charge bool, m *cell.Model, r *Results, update updateFunc, currentCutoff, voltageLimit, currentEstimate, currentLimCLS, currentLimNCLS float64) *ConstantVoltageMode {
	return &ConstantVoltageMode{
		cycleModeBase: newCycleModeBase(charge, m, r, update, currentLimCLS, currentLimNCLS),
		currentCutoff: currentCutoff,
		voltageLimit:  voltageLimit,
		current:       currentEstimate,
	}
}

func (c *ConstantVoltageMode) Current() float64 { return c.current }

// Validate 恒压模式的可行性在步进中动态暴露，始终返回正常。
func (c *ConstantVoltageMode) Validate() CycleStatus {
	return StatusNormal
}

// CycleStep 首步无电流估计时以极限电流的 99% 作初值，符号随半循环方向
// （幅值严格小于极限电流，避免过电位计算中的对数越界）；
// 此后上一步电流到达极限电流即终止。以上一步电流热启动求解
// V_limit = OCV ± 损失(I)，解出的电流低于截止值时终止（此时浓度尚未更新，
// 无需回滚），否则施加库伦计数并记录该步（电压记录为固定的电压限）。
// 损失项是 |I| 的偶函数，根成对出现，热启动初值的符号决定收敛到哪一支，
// 因此初值符号必须与本半循环方向一致。
func (c *ConstantVoltageMode) CycleStep() (CycleStatus, error) {
	if status := c.checkTime(StatusNormal); status != StatusNormal {
		return status, nil
	}

	if c.current == 0 {
		c.current = 0.99 * math.Min(c.currentLimCLS, c.currentLimNCLS)
		if !c.charge {
			c.current = -c.current
		}
	} else if math.Abs(c.current) >= math.Min(c.currentLimCLS, c.currentLimNCLS) {
		return StatusLimitingCurrentReached, nil
	}

	ocv, err := c.model.OpenCircuitVoltage()
	if err != nil {
		return StatusNormal, fmt.Errorf("constant voltage step: %w", err)
	}

	direction := 1.0
	if !c.charge {
		direction = -1.0
	}
	residual := func(current float64) float64 {
		losses, _, _, err := c.model.TotalOverpotential(current, c.charge, c.currentLimCLS, c.currentLimNCLS)
		if err != nil {
			return math.NaN()
		}
		return c.voltageLimit - ocv - direction*losses
	}

	current, err := maths.SolveScalar(residual, c.current, types.SolverTolerance, types.SolverMaxIterations)
	if err != nil {
		return StatusNormal, fmt.Errorf("constant voltage solve: %w", err)
	}
	c.current = current

	if math.Abs(current) <= math.Abs(c.currentCutoff) {
		return c.checkCapacity(StatusCurrentCutoffReached), nil
	}

	c.update(current)

	if c.model.NegativeConcentrations() {
		c.model.RevertConcentrations()
		return c.checkCapacity(StatusNegativeConcentrations), nil
	}

	c.results.recordStep(c.model, c.charge, current, c.voltageLimit, ocv, 0, 0, 0)

	return c.checkTime(StatusNormal), nil
}
