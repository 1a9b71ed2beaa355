package protocol

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"rfb/cell"
	"rfb/types"
)

// Mechanisms 一次运行中可选的衰减与渗透机制组合。
// Degradation 为两侧共用机制，与 CLSDegradation/NCLSDegradation 互斥。
type Mechanisms struct {
	Degradation     types.DegradationMechanism
	CLSDegradation  types.DegradationMechanism
	NCLSDegradation types.DegradationMechanism
	Crossover       types.CrossoverMechanism
}

// Protocol 完整循环实验的编排器：驱动一连串半循环直至终止状态。
type Protocol interface {
	Run(duration float64, m *cell.Model, mech Mechanisms) (*Results, error)
}

// protocolBase 三种编排器共享的电压限与运行前校验。
type protocolBase struct {
	voltageLimitCharge    float64
	voltageLimitDischarge float64
	chargeFirst           bool
	log                   *zap.Logger
}

func newProtocolBase(voltageLimitCharge, voltageLimitDischarge float64, dischargeFirst bool, log *zap.Logger) protocolBase {
	if log == nil {
		log = zap.NewNop()
	}
	return protocolBase{
		voltageLimitCharge:    voltageLimitCharge,
		voltageLimitDischarge: voltageLimitDischarge,
		chargeFirst:           !dischargeFirst,
		log:                   log,
	}
}

// validateCycleValues 校验单值与充/放分值参数：二者互斥，
// 单值必须为正并展开为 (+v, -v)，分值必须符号正确。
func validateCycleValues(value, valueCharge, valueDischarge float64, name string) (float64, float64, error) {
	if value != 0 && (valueCharge != 0 || valueDischarge != 0) {
		return 0, 0, fmt.Errorf("protocol: cannot specify both '%s' and '%s_(dis)charge'", name, name)
	}
	if value != 0 {
		if value <= 0.0 {
			return 0, 0, fmt.Errorf("protocol: '%s' must be > 0.0", name)
		}
		valueCharge = value
		valueDischarge = -value
	}
	if valueCharge <= 0.0 {
		return 0, 0, fmt.Errorf("protocol: '%s_charge' must be > 0.0", name)
	}
	if valueDischarge >= 0.0 {
		return 0, 0, fmt.Errorf("protocol: '%s_discharge' must be < 0.0", name)
	}
	return valueCharge, valueDischarge, nil
}

// validateRun 运行前的整体校验：电压限必须严格包住参考电压，
// 全电池（参考电压为正）不允许负的放电电压限，共用与分侧衰减机制互斥，
// 初始浓度非负，时长必须超过时间步长。
// 返回结果容器与绑定了机制的浓度更新闭包。
func (p *protocolBase) validateRun(duration float64, m *cell.Model, mech Mechanisms) (*Results, updateFunc, error) {
	if duration <= m.TimeIncrement {
		return nil, nil, fmt.Errorf("protocol: duration must exceed the time increment")
	}
	if !(p.voltageLimitDischarge < m.OCV50SOC && m.OCV50SOC < p.voltageLimitCharge) {
		return nil, nil, fmt.Errorf("protocol: ensure that 'VoltageLimitDischarge' < 'OCV50SOC' < 'VoltageLimitCharge'")
	}
	if m.OCV50SOC > 0.0 && p.voltageLimitDischarge < 0.0 {
		return nil, nil, fmt.Errorf("protocol: ensure that 'VoltageLimitDischarge' >= 0.0 when 'OCV50SOC' > 0.0")
	}
	if mech.Degradation != nil && (mech.CLSDegradation != nil || mech.NCLSDegradation != nil) {
		return nil, nil, fmt.Errorf("protocol: cannot specify both 'Degradation' and '(N)CLSDegradation'")
	}
	if m.NegativeConcentrations() {
		return nil, nil, fmt.Errorf("protocol: %w", cell.ErrNegativeConcentration)
	}

	clsDeg, nclsDeg := mech.CLSDegradation, mech.NCLSDegradation
	if mech.Degradation != nil {
		clsDeg = mech.Degradation
		nclsDeg = mech.Degradation
	}
	update := func(current float64) (float64, float64) {
		return m.CoulombCount(current, clsDeg, nclsDeg, mech.Crossover)
	}

	return newResults(duration, m.TimeIncrement, p.chargeFirst), update, nil
}

// finish 截断结果尾部并记录终止状态。
func (p *protocolBase) finish(r *Results, status CycleStatus) *Results {
	r.FinalStatus = status
	r.truncate()
	p.log.Info("仿真结束",
		zap.Int("steps", r.Step),
		zap.Int("half_cycles", r.HalfCycles),
		zap.Stringer("status", status))
	return r
}

// ConstantCurrentConfig 恒流协议配置。
// Current 与 CurrentCharge/CurrentDischarge 互斥，零值视为未设置。
type ConstantCurrentConfig struct {
	VoltageLimitCharge    float64 // 充电电压上限 (V)
	VoltageLimitDischarge float64 // 放电电压下限 (V)
	Current               float64 // 恒流电流幅值 (A)
	CurrentCharge         float64 // 充电电流 (A, >0)
	CurrentDischarge      float64 // 放电电流 (A, <0)
	DischargeFirst        bool    // 首个半循环为放电
	Logger                *zap.Logger
}

// ConstantCurrent 恒流（CC）循环协议。
type ConstantCurrent struct {
	protocolBase
	currentCharge    float64
	currentDischarge float64
}

// NewConstantCurrent 构造恒流协议并校验电流参数。
func NewConstantCurrent(cfg ConstantCurrentConfig) (*ConstantCurrent, error) {
	currentCharge, currentDischarge, err := validateCycleValues(
		cfg.Current, cfg.CurrentCharge, cfg.CurrentDischarge, "current")
	if err != nil {
		return nil, err
	}
	return &ConstantCurrent{
		protocolBase:     newProtocolBase(cfg.VoltageLimitCharge, cfg.VoltageLimitDischarge, cfg.DischargeFirst, cfg.Logger),
		currentCharge:    currentCharge,
		currentDischarge: currentDischarge,
	}, nil
}

// Run 执行恒流循环。起始方向不可行时尝试反向，两个方向都不可行则中止。
// 负浓度或到达电压限关闭当前半循环并换向，其余终止状态结束运行。
func (p *ConstantCurrent) Run(duration float64, m *cell.Model, mech Mechanisms) (*Results, error) {
	results, update, err := p.validateRun(duration, m, mech)
	if err != nil {
		return nil, err
	}

	newMode := func(charge bool) *ConstantCurrentMode {
		current, voltageLimit := p.currentDischarge, p.voltageLimitDischarge
		if charge {
			current, voltageLimit = p.currentCharge, p.voltageLimitCharge
		}
		return NewConstantCurrentMode(charge, m, results, update, current, voltageLimit, true)
	}

	mode := newMode(p.chargeFirst)
	if status := mode.Validate(); status != StatusNormal {
		mode = newMode(!p.chargeFirst)
		if retry := mode.Validate(); retry != StatusNormal {
			return nil, fmt.Errorf("protocol: cycling is infeasible in both directions: %v", status)
		}
		p.log.Info("起始方向不可行，跳到反向半循环",
			zap.Stringer("status", status), zap.Bool("charge", mode.Charge()))
	}

	p.log.Info("开始恒流循环",
		zap.Float64("duration", duration),
		zap.Float64("time_increment", m.TimeIncrement))

	status := StatusNormal
	for status == StatusNormal {
		status, err = mode.CycleStep()
		if err != nil {
			return nil, err
		}

		if status == StatusNegativeConcentrations || status == StatusVoltageLimitReached {
			results.recordHalfCycle(mode.Charge())
			mode = newMode(!mode.Charge())
			status = StatusNormal
		}
	}

	return p.finish(results, status), nil
}

// ConstantVoltageConfig 恒压协议配置。
// CurrentCutoff 与 CurrentCutoffCharge/CurrentCutoffDischarge 互斥。
type ConstantVoltageConfig struct {
	VoltageLimitCharge     float64 // 充电恒压值 (V)
	VoltageLimitDischarge  float64 // 放电恒压值 (V)
	CurrentCutoff          float64 // 截止电流幅值 (A)
	CurrentCutoffCharge    float64 // 充电截止电流 (A, >0)
	CurrentCutoffDischarge float64 // 放电截止电流 (A, <0)
	DischargeFirst         bool
	Logger                 *zap.Logger
}

// ConstantVoltage 恒压（CV）循环协议。
type ConstantVoltage struct {
	protocolBase
	currentCutoffCharge    float64
	currentCutoffDischarge float64
}

// NewConstantVoltage 构造恒压协议并校验截止电流参数。
func NewConstantVoltage(cfg ConstantVoltageConfig) (*ConstantVoltage, error) {
	cutoffCharge, cutoffDischarge, err := validateCycleValues(
		cfg.CurrentCutoff, cfg.CurrentCutoffCharge, cfg.CurrentCutoffDischarge, "current_cutoff")
	if err != nil {
		return nil, err
	}
	return &ConstantVoltage{
		protocolBase:           newProtocolBase(cfg.VoltageLimitCharge, cfg.VoltageLimitDischarge, cfg.DischargeFirst, cfg.Logger),
		currentCutoffCharge:    cutoffCharge,
		currentCutoffDischarge: cutoffDischarge,
	}, nil
}

// Run 执行恒压循环，起始电流估计为零。
// 电流截止或负浓度关闭当前半循环并换向，
// 上一半循环的末电流取反后作为新半循环的求解初值（符号跟随新方向）。
func (p *ConstantVoltage) Run(duration float64, m *cell.Model, mech Mechanisms) (*Results, error) {
	results, update, err := p.validateRun(duration, m, mech)
	if err != nil {
		return nil, err
	}

	newMode := func(charge bool, currentEstimate float64) *ConstantVoltageMode {
		cutoff, voltageLimit := p.currentCutoffDischarge, p.voltageLimitDischarge
		if charge {
			cutoff, voltageLimit = p.currentCutoffCharge, p.voltageLimitCharge
		}
		return NewConstantVoltageMode(charge, m, results, update, cutoff, voltageLimit, currentEstimate, 0, 0)
	}

	mode := newMode(p.chargeFirst, 0.0)
	if status := mode.Validate(); status != StatusNormal {
		return nil, fmt.Errorf("protocol: %v", status)
	}

	p.log.Info("开始恒压循环",
		zap.Float64("duration", duration),
		zap.Float64("time_increment", m.TimeIncrement))

	status := StatusNormal
	for status == StatusNormal {
		status, err = mode.CycleStep()
		if err != nil {
			return nil, err
		}

		if status == StatusCurrentCutoffReached || status == StatusNegativeConcentrations {
			results.recordHalfCycle(mode.Charge())
			mode = newMode(!mode.Charge(), -mode.Current())
			status = StatusNormal
		}
	}

	return p.finish(results, status), nil
}

// ConstantCurrentConstantVoltageConfig 恒流-恒压（CCCV）协议配置。
type ConstantCurrentConstantVoltageConfig struct {
	VoltageLimitCharge     float64 // CC 切换 CV 的充电电压 (V)
	VoltageLimitDischarge  float64 // CC 切换 CV 的放电电压 (V)
	CurrentCutoff          float64 // 截止电流幅值 (A)
	CurrentCutoffCharge    float64 // CV 充电截止电流 (A, >0)
	CurrentCutoffDischarge float64 // CV 放电截止电流 (A, <0)
	Current                float64 // CC 段电流幅值 (A)
	CurrentCharge          float64 // CC 段充电电流 (A, >0)
	CurrentDischarge       float64 // CC 段放电电流 (A, <0)
	DischargeFirst         bool
	Logger                 *zap.Logger
}

// ConstantCurrentConstantVoltage 恒流-恒压（CCCV）循环协议。
// 电池无法维持需求电流时退化为纯恒压循环。
type ConstantCurrentConstantVoltage struct {
	protocolBase
	currentCutoffCharge    float64
	currentCutoffDischarge float64
	currentCharge          float64
	currentDischarge       float64
}

// NewConstantCurrentConstantVoltage 构造 CCCV 协议并校验电流与截止参数。
func NewConstantCurrentConstantVoltage(cfg ConstantCurrentConstantVoltageConfig) (*ConstantCurrentConstantVoltage, error) {
	cutoffCharge, cutoffDischarge, err := validateCycleValues(
		cfg.CurrentCutoff, cfg.CurrentCutoffCharge, cfg.CurrentCutoffDischarge, "current_cutoff")
	if err != nil {
		return nil, err
	}
	currentCharge, currentDischarge, err := validateCycleValues(
		cfg.Current, cfg.CurrentCharge, cfg.CurrentDischarge, "current")
	if err != nil {
		return nil, err
	}
	return &ConstantCurrentConstantVoltage{
		protocolBase:           newProtocolBase(cfg.VoltageLimitCharge, cfg.VoltageLimitDischarge, cfg.DischargeFirst, cfg.Logger),
		currentCutoffCharge:    cutoffCharge,
		currentCutoffDischarge: cutoffDischarge,
		currentCharge:          currentCharge,
		currentDischarge:       currentDischarge,
	}, nil
}

// Run 执行 CCCV 循环。CC 段抑制容量检查；起始 CC 不可行时直接进入 CV，
// 以名义电流作为求解初值。到达电压限时在同一半循环内切换 CC→CV
// 并沿用已算好的极限电流；电流截止关闭半循环并以 CC 开始下一半循环；
// 负浓度关闭半循环并以失败时所处的模式开始下一半循环。
func (p *ConstantCurrentConstantVoltage) Run(duration float64, m *cell.Model, mech Mechanisms) (*Results, error) {
	results, update, err := p.validateRun(duration, m, mech)
	if err != nil {
		return nil, err
	}

	newCCMode := func(charge bool) *ConstantCurrentMode {
		current, voltageLimit := p.currentDischarge, p.voltageLimitDischarge
		if charge {
			current, voltageLimit = p.currentCharge, p.voltageLimitCharge
		}
		return NewConstantCurrentMode(charge, m, results, update, current, voltageLimit, false)
	}
	newCVMode := func(charge bool, currentEstimate, currentLimCLS, currentLimNCLS float64) *ConstantVoltageMode {
		cutoff, voltageLimit := p.currentCutoffDischarge, p.voltageLimitDischarge
		if charge {
			cutoff, voltageLimit = p.currentCutoffCharge, p.voltageLimitCharge
		}
		return NewConstantVoltageMode(charge, m, results, update, cutoff, voltageLimit, currentEstimate, currentLimCLS, currentLimNCLS)
	}

	var mode CycleMode = newCCMode(p.chargeFirst)
	status := mode.Validate()
	isCCMode := status == StatusNormal
	if !isCCMode {
		p.log.Info("恒流起步不可行，直接进入恒压段", zap.Stringer("status", status))
		current := p.currentDischarge
		if p.chargeFirst {
			current = p.currentCharge
		}
		mode = newCVMode(p.chargeFirst, current, 0, 0)
		status = mode.Validate()
	}

	p.log.Info("开始恒流-恒压循环",
		zap.Float64("duration", duration),
		zap.Float64("time_increment", m.TimeIncrement))

	for status == StatusNormal {
		limCLS, limNCLS := mode.CurrentLimits()
		if isCCMode && math.Abs(mode.Current()) >= math.Min(limCLS, limNCLS) {
			// 浓度衰减后恒流需求超过极限电流，按恒压段处理
			p.log.Warn("恒流电流超过极限电流", zap.Float64("current", mode.Current()))
			isCCMode = false
		}

		status, err = mode.CycleStep()
		if err != nil {
			return nil, err
		}

		switch status {
		case StatusVoltageLimitReached:
			isCCMode = false
			mode = newCVMode(mode.Charge(), mode.Current(), limCLS, limNCLS)
			status = StatusNormal

		case StatusCurrentCutoffReached:
			results.recordHalfCycle(mode.Charge())
			isCCMode = true
			mode = newCCMode(!mode.Charge())
			status = StatusNormal

		case StatusNegativeConcentrations:
			results.recordHalfCycle(mode.Charge())
			if isCCMode {
				mode = newCCMode(!mode.Charge())
			} else {
				mode = newCVMode(!mode.Charge(), -mode.Current(), 0, 0)
			}
			status = StatusNormal
		}
	}

	return p.finish(results, status), nil
}
