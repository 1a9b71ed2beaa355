package load

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rfb/cell"
	"rfb/crossover"
	"rfb/degradation"
	"rfb/protocol"
	"rfb/types"
)

// CellConfig 电池参数段。指针字段区分未设置与显式零，未设置采用默认值。
type CellConfig struct {
	CLSVolume       float64  `yaml:"cls_volume"`
	NCLSVolume      float64  `yaml:"ncls_volume"`
	CLSStartCOx     float64  `yaml:"cls_start_c_ox"`
	CLSStartCRed    float64  `yaml:"cls_start_c_red"`
	NCLSStartCOx    float64  `yaml:"ncls_start_c_ox"`
	NCLSStartCRed   float64  `yaml:"ncls_start_c_red"`
	OCV50SOC        float64  `yaml:"ocv_50_soc"`
	Resistance      float64  `yaml:"resistance"`
	K0CLS           float64  `yaml:"k_0_cls"`
	K0NCLS          float64  `yaml:"k_0_ncls"`
	AlphaCLS        *float64 `yaml:"alpha_cls"`
	AlphaNCLS       *float64 `yaml:"alpha_ncls"`
	GeometricArea   *float64 `yaml:"geometric_area"`
	CLSNegolyte     *bool    `yaml:"cls_negolyte"`
	TimeIncrement   *float64 `yaml:"time_increment"`
	KMT             *float64 `yaml:"k_mt"`
	RoughnessFactor *float64 `yaml:"roughness_factor"`
	ElectronsCLS    *int     `yaml:"n_cls"`
	ElectronsNCLS   *int     `yaml:"n_ncls"`
}

// MechanismConfig 单个衰减机制，type 决定其余字段的含义。
type MechanismConfig struct {
	Type         string  `yaml:"type"` // chemical / auto_oxidation / auto_reduction / dimerization
	RateOrder    int     `yaml:"rate_order"`
	RateConstant float64 `yaml:"rate_constant"`
	Species      string  `yaml:"species"` // ox / red
	KForward     float64 `yaml:"k_forward"`
	KBackward    float64 `yaml:"k_backward"`
	CDimer       float64 `yaml:"c_dimer"`
}

// CrossoverConfig 渗透机制段。
type CrossoverConfig struct {
	MembraneThickness float64  `yaml:"membrane_thickness"` // µm
	PermeabilityOx    float64  `yaml:"permeability_ox"`
	PermeabilityRed   float64  `yaml:"permeability_red"`
	MembraneArea      *float64 `yaml:"membrane_area"` // 缺省取电池几何面积
}

// ProtocolConfig 循环协议段，type 决定使用哪些字段。
type ProtocolConfig struct {
	Type                   string  `yaml:"type"` // cc / cv / cccv
	VoltageLimitCharge     float64 `yaml:"voltage_limit_charge"`
	VoltageLimitDischarge  float64 `yaml:"voltage_limit_discharge"`
	Current                float64 `yaml:"current"`
	CurrentCharge          float64 `yaml:"current_charge"`
	CurrentDischarge       float64 `yaml:"current_discharge"`
	CurrentCutoff          float64 `yaml:"current_cutoff"`
	CurrentCutoffCharge    float64 `yaml:"current_cutoff_charge"`
	CurrentCutoffDischarge float64 `yaml:"current_cutoff_discharge"`
	DischargeFirst         bool    `yaml:"discharge_first"`
}

// Scenario 一次完整仿真实验的声明式描述。
type Scenario struct {
	Cell            CellConfig        `yaml:"cell"`
	Degradation     []MechanismConfig `yaml:"degradation"`      // 两侧共用
	CLSDegradation  []MechanismConfig `yaml:"cls_degradation"`  // 仅 CLS
	NCLSDegradation []MechanismConfig `yaml:"ncls_degradation"` // 仅 NCLS
	Crossover       *CrossoverConfig  `yaml:"crossover"`
	Protocol        ProtocolConfig    `yaml:"protocol"`
	Duration        float64           `yaml:"duration"`
}

// LoadString 解析 YAML 文本形式的仿真场景。
func LoadString(s string) (*Scenario, error) {
	return LoadReader(strings.NewReader(s))
}

// LoadFile 解析 YAML 场景文件。
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader 解析 YAML 场景，未知字段视为错误。
func LoadReader(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return &sc, nil
}

// cellParams 将电池段展开为构造参数，未设置字段保持默认值。
func (c *CellConfig) cellParams() cell.Params {
	p := cell.DefaultParams()
	p.CLSVolume = c.CLSVolume
	p.NCLSVolume = c.NCLSVolume
	p.CLSStartCOx = c.CLSStartCOx
	p.CLSStartCRed = c.CLSStartCRed
	p.NCLSStartCOx = c.NCLSStartCOx
	p.NCLSStartCRed = c.NCLSStartCRed
	p.OCV50SOC = c.OCV50SOC
	p.Resistance = c.Resistance
	p.K0CLS = c.K0CLS
	p.K0NCLS = c.K0NCLS
	if c.AlphaCLS != nil {
		p.AlphaCLS = *c.AlphaCLS
	}
	if c.AlphaNCLS != nil {
		p.AlphaNCLS = *c.AlphaNCLS
	}
	if c.GeometricArea != nil {
		p.GeometricArea = *c.GeometricArea
	}
	if c.CLSNegolyte != nil {
		p.CLSNegolyte = *c.CLSNegolyte
	}
	if c.TimeIncrement != nil {
		p.TimeIncrement = *c.TimeIncrement
	}
	if c.KMT != nil {
		p.KMT = *c.KMT
	}
	if c.RoughnessFactor != nil {
		p.RoughnessFactor = *c.RoughnessFactor
	}
	if c.ElectronsCLS != nil {
		p.ElectronsCLS = *c.ElectronsCLS
	}
	if c.ElectronsNCLS != nil {
		p.ElectronsNCLS = *c.ElectronsNCLS
	}
	return p
}

// buildMechanism 按 type 字段实例化单个衰减机制。
func buildMechanism(cfg MechanismConfig) (types.DegradationMechanism, error) {
	switch cfg.Type {
	case "chemical":
		return degradation.NewChemicalDegradation(cfg.RateOrder, cfg.RateConstant, degradation.Species(cfg.Species))
	case "auto_oxidation":
		return degradation.NewAutoOxidation(cfg.RateConstant)
	case "auto_reduction":
		return degradation.NewAutoReduction(cfg.RateConstant)
	case "dimerization":
		return degradation.NewDimerization(cfg.KForward, cfg.KBackward, cfg.CDimer)
	}
	return nil, fmt.Errorf("load: unknown degradation type %q", cfg.Type)
}

// buildMechanisms 多个机制按声明顺序合成为串联机制。
func buildMechanisms(cfgs []MechanismConfig) (types.DegradationMechanism, error) {
	switch len(cfgs) {
	case 0:
		return nil, nil
	case 1:
		return buildMechanism(cfgs[0])
	}
	list := make([]types.DegradationMechanism, 0, len(cfgs))
	for _, cfg := range cfgs {
		mech, err := buildMechanism(cfg)
		if err != nil {
			return nil, err
		}
		list = append(list, mech)
	}
	return degradation.NewMulti(list...)
}

// buildProtocol 按 type 字段实例化循环协议。
func buildProtocol(cfg ProtocolConfig, log *zap.Logger) (protocol.Protocol, error) {
	switch cfg.Type {
	case "cc":
		return protocol.NewConstantCurrent(protocol.ConstantCurrentConfig{
			VoltageLimitCharge:    cfg.VoltageLimitCharge,
			VoltageLimitDischarge: cfg.VoltageLimitDischarge,
			Current:               cfg.Current,
			CurrentCharge:         cfg.CurrentCharge,
			CurrentDischarge:      cfg.CurrentDischarge,
			DischargeFirst:        cfg.DischargeFirst,
			Logger:                log,
		})
	case "cv":
		return protocol.NewConstantVoltage(protocol.ConstantVoltageConfig{
			VoltageLimitCharge:     cfg.VoltageLimitCharge,
			VoltageLimitDischarge:  cfg.VoltageLimitDischarge,
			CurrentCutoff:          cfg.CurrentCutoff,
			CurrentCutoffCharge:    cfg.CurrentCutoffCharge,
			CurrentCutoffDischarge: cfg.CurrentCutoffDischarge,
			DischargeFirst:         cfg.DischargeFirst,
			Logger:                 log,
		})
	case "cccv":
		return protocol.NewConstantCurrentConstantVoltage(protocol.ConstantCurrentConstantVoltageConfig{
			VoltageLimitCharge:     cfg.VoltageLimitCharge,
			VoltageLimitDischarge:  cfg.VoltageLimitDischarge,
			CurrentCutoff:          cfg.CurrentCutoff,
			CurrentCutoffCharge:    cfg.CurrentCutoffCharge,
			CurrentCutoffDischarge: cfg.CurrentCutoffDischarge,
			Current:                cfg.Current,
			CurrentCharge:          cfg.CurrentCharge,
			CurrentDischarge:       cfg.CurrentDischarge,
			DischargeFirst:         cfg.DischargeFirst,
			Logger:                 log,
		})
	}
	return nil, fmt.Errorf("load: unknown protocol type %q", cfg.Type)
}

// Build 将场景实例化为可运行的模型、协议与机制组合。
func (sc *Scenario) Build(log *zap.Logger) (*cell.Model, protocol.Protocol, protocol.Mechanisms, float64, error) {
	var mech protocol.Mechanisms

	m, err := cell.New(sc.Cell.cellParams())
	if err != nil {
		return nil, nil, mech, 0, err
	}

	if mech.Degradation, err = buildMechanisms(sc.Degradation); err != nil {
		return nil, nil, mech, 0, err
	}
	if mech.CLSDegradation, err = buildMechanisms(sc.CLSDegradation); err != nil {
		return nil, nil, mech, 0, err
	}
	if mech.NCLSDegradation, err = buildMechanisms(sc.NCLSDegradation); err != nil {
		return nil, nil, mech, 0, err
	}

	if sc.Crossover != nil {
		area := m.GeometricArea
		if sc.Crossover.MembraneArea != nil {
			area = *sc.Crossover.MembraneArea
		}
		mech.Crossover, err = crossover.New(sc.Crossover.MembraneThickness,
			sc.Crossover.PermeabilityOx, sc.Crossover.PermeabilityRed, area)
		if err != nil {
			return nil, nil, mech, 0, err
		}
	}

	p, err := buildProtocol(sc.Protocol, log)
	if err != nil {
		return nil, nil, mech, 0, err
	}

	if sc.Duration <= 0 {
		return nil, nil, mech, 0, fmt.Errorf("load: 'duration' must be > 0")
	}

	return m, p, mech, sc.Duration, nil
}
