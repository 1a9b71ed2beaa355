package types

// DegradationMechanism 单侧储液罐的化学衰减机制。
// Degrade 只依赖本侧氧化态/还原态浓度 (M) 与时间步长 (s)，
// 返回更新后的两个浓度，不得访问另一侧储液罐的状态。
type DegradationMechanism interface {
	Degrade(cOx, cRed, timeIncrement float64) (float64, float64)
}

// CrossoverMechanism 跨膜渗透机制。
// Crossover 在 CLS 与 NCLS 两侧储液罐之间迁移活性物质，
// 输入四个浓度 (M)、两侧体积 (L) 与时间步长 (s)，
// 返回更新后的四个浓度以及净迁移的氧化态/还原态摩尔量 (mol)，
// 摩尔量仅用于记录。
type CrossoverMechanism interface {
	Crossover(cOxCLS, cRedCLS, cOxNCLS, cRedNCLS, volumeCLS, volumeNCLS, timeIncrement float64) (float64, float64, float64, float64, float64, float64)
}
