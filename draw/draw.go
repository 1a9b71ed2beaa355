// Package draw 将循环实验结果绘制为 PNG 图像。
package draw

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"rfb/protocol"
)

func xyPoints(xs, ys []float64) plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// CapacityFade 绘制充/放电半循环容量随时间的衰减曲线。
func CapacityFade(r *protocol.Results, path string) error {
	p := plot.New()
	p.Title.Text = "Capacity Fade"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Half-Cycle Capacity (C)"

	err := plotutil.AddLinePoints(p,
		"Charge", xyPoints(r.ChargeCycleTime, r.ChargeCycleCapacity),
		"Discharge", xyPoints(r.DischargeCycleTime, r.DischargeCycleCapacity))
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return save(p, path)
}

// VoltageTrace 绘制端电压-时间曲线。
func VoltageTrace(r *protocol.Results, path string) error {
	p := plot.New()
	p.Title.Text = "Cell Voltage"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Voltage (V)"

	line, err := plotter.NewLine(xyPoints(r.StepTime, r.CellVoltage))
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return save(p, path)
}

// CurrentTrace 绘制电流-时间曲线。
func CurrentTrace(r *protocol.Results, path string) error {
	p := plot.New()
	p.Title.Text = "Applied Current"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Current (A)"

	line, err := plotter.NewLine(xyPoints(r.StepTime, r.Current))
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	line.Color = plotutil.Color(1)
	p.Add(line)
	return save(p, path)
}

// StateOfCharge 绘制两侧储液罐荷电状态-时间曲线。
func StateOfCharge(r *protocol.Results, path string) error {
	p := plot.New()
	p.Title.Text = "State of Charge"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "SOC (%)"

	err := plotutil.AddLines(p,
		"CLS", xyPoints(r.StepTime, r.SOCCLS),
		"NCLS", xyPoints(r.StepTime, r.SOCNCLS))
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return save(p, path)
}
