// Package rfb 氧化还原液流电池零维循环仿真器。
// 电化学模型见 cell，衰减与渗透机制见 degradation/crossover，
// 循环协议见 protocol，本包提供从场景文件到结果图像的整套入口。
package rfb

import (
	"path/filepath"

	"go.uber.org/zap"

	"rfb/cell"
	"rfb/draw"
	"rfb/load"
	"rfb/protocol"
)

// Simulation 一次可运行的仿真实验：模型、协议与机制的组合。
type Simulation struct {
	Model      *cell.Model
	Protocol   protocol.Protocol
	Mechanisms protocol.Mechanisms
	Duration   float64

	log *zap.Logger
}

// NewSimulation 从场景描述实例化仿真实验。log 传 nil 时静默运行。
func NewSimulation(sc *load.Scenario, log *zap.Logger) (*Simulation, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m, p, mech, duration, err := sc.Build(log)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		Model:      m,
		Protocol:   p,
		Mechanisms: mech,
		Duration:   duration,
		log:        log,
	}, nil
}

// LoadFile 从 YAML 场景文件实例化仿真实验。
func LoadFile(path string, log *zap.Logger) (*Simulation, error) {
	sc, err := load.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewSimulation(sc, log)
}

// Run 执行循环协议直至终止状态。
func (s *Simulation) Run() (*protocol.Results, error) {
	return s.Protocol.Run(s.Duration, s.Model, s.Mechanisms)
}

// Render 将结果绘制为 outDir 下的一组 PNG 图像。
func Render(r *protocol.Results, outDir string) error {
	if err := draw.CapacityFade(r, filepath.Join(outDir, "capacity_fade.png")); err != nil {
		return err
	}
	if err := draw.VoltageTrace(r, filepath.Join(outDir, "cell_voltage.png")); err != nil {
		return err
	}
	if err := draw.CurrentTrace(r, filepath.Join(outDir, "current.png")); err != nil {
		return err
	}
	return draw.StateOfCharge(r, filepath.Join(outDir, "soc.png"))
}
