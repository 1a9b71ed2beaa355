package types

// 物理常量定义（CODATA 2018）
const (
	// Faraday 法拉第常数 (C/mol)
	Faraday = 96485.33212331001
	// GasConstant 摩尔气体常数 (J/K/mol)
	GasConstant = 8.31446261815324
	// Temperature 标准温度 (K)
	Temperature = 298.0
	// NernstConst 能斯特常数 RT/F (V)
	NernstConst = GasConstant * Temperature / Faraday
)

// 默认仿真参数常量定义
const (
	// SolverTolerance 恒压求解收敛容差 (A)
	SolverTolerance = 1e-5
	// SolverMaxIterations 恒压求解最大迭代次数
	SolverMaxIterations = 200
)
