package protocol

// CycleStatus 半循环控制器每步返回的状态。
// 除 StatusNormal 外均会中断当前半循环；编排器决定是换向继续还是终止整个实验。
type CycleStatus int

const (
	// StatusNormal 正常，继续步进
	StatusNormal CycleStatus = iota
	// StatusNegativeConcentrations 出现负浓度，该步已回滚
	StatusNegativeConcentrations
	// StatusVoltageLimitReached 端电压到达电压限
	StatusVoltageLimitReached
	// StatusCurrentCutoffReached 恒压电流降至截止电流
	StatusCurrentCutoffReached
	// StatusLimitingCurrentReached 需求电流超出当前浓度下的极限电流
	StatusLimitingCurrentReached
	// StatusLowCapacity 半循环容量衰减到容量下限
	StatusLowCapacity
	// StatusTimeDurationReached 仿真时长用尽
	StatusTimeDurationReached
)

func (s CycleStatus) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusNegativeConcentrations:
		return "negative species concentrations"
	case StatusVoltageLimitReached:
		return "voltage limits reached"
	case StatusCurrentCutoffReached:
		return "current cutoffs reached"
	case StatusLimitingCurrentReached:
		return "current has exceeded the limiting currents for the cell concentrations"
	case StatusLowCapacity:
		return "capacity is less than 1 coulomb"
	case StatusTimeDurationReached:
		return "time duration reached"
	}
	return "unknown"
}
