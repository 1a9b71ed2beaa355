package crossover

import (
	"fmt"
)

// Crossover 膜渗透机制：活性物质穿过隔膜在 CLS/NCLS 之间迁移。
// 还原态由两侧浓度差驱动，氧化态由两罐摩尔量差驱动，
// 膜面积在构造时绑定（通常取电池几何面积）。
type Crossover struct {
	membraneThickness float64 // 膜厚 (cm)，构造时由 µm 换算
	permeabilityOx    float64 // 氧化态渗透率 (cm^2/s)
	permeabilityRed   float64 // 还原态渗透率 (cm^2/s)
	membraneArea      float64 // 膜面积 (cm^2)
}

// New 构造渗透机制。膜厚单位 µm，渗透率单位 cm^2/s，面积单位 cm^2。
// 两个渗透率不得同时为零。
func New(membraneThickness, permeabilityOx, permeabilityRed, membraneArea float64) (*Crossover, error) {
	if membraneThickness <= 0.0 {
		return nil, fmt.Errorf("crossover: 'MembraneThickness' must be > 0.0")
	}
	if membraneArea <= 0.0 {
		return nil, fmt.Errorf("crossover: 'MembraneArea' must be > 0.0")
	}
	if permeabilityOx < 0.0 || permeabilityRed < 0.0 {
		return nil, fmt.Errorf("crossover: permeabilities must be >= 0.0")
	}
	if permeabilityOx == 0.0 && permeabilityRed == 0.0 {
		return nil, fmt.Errorf("crossover: 'PermeabilityOx' and 'PermeabilityRed' cannot both be 0.0")
	}
	return &Crossover{
		membraneThickness: membraneThickness / 10000, // µm -> cm
		permeabilityOx:    permeabilityOx,
		permeabilityRed:   permeabilityRed,
		membraneArea:      membraneArea,
	}, nil
}

// Crossover 推进一个时间步的跨膜迁移。
// 还原态的驱动力为 CLS 与 NCLS 的浓度差，氧化态的驱动力为
// 两罐摩尔量之差（浓度按罐体积加权）；乘 0.001 将 mol/L 换算为 mol/cm^3。
// 返回更新后的四个浓度与净迁移摩尔量（CLS→NCLS 为正），摩尔量仅用于记录。
func (c *Crossover) Crossover(cOxCLS, cRedCLS, cOxNCLS, cRedNCLS, volumeCLS, volumeNCLS, timeIncrement float64) (float64, float64, float64, float64, float64, float64) {
	membraneConstant := c.membraneArea / c.membraneThickness

	deltaOxMols := timeIncrement * c.permeabilityRed * membraneConstant * (cOxCLS*volumeCLS - cOxNCLS*volumeNCLS) * 0.001
	deltaRedMols := timeIncrement * c.permeabilityOx * membraneConstant * (cRedCLS - cRedNCLS) * 0.001

	cOxCLS -= deltaOxMols / volumeCLS
	cOxNCLS += deltaOxMols / volumeNCLS
	cRedCLS -= deltaRedMols / volumeCLS
	cRedNCLS += deltaRedMols / volumeNCLS

	return cOxCLS, cRedCLS, cOxNCLS, cRedNCLS, deltaOxMols, deltaRedMols
}
