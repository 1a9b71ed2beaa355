package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"rfb"
)

func main() {
	scenario := flag.String("scenario", "./scenario.yaml", "仿真场景文件")
	out := flag.String("out", ".", "结果图像输出目录")
	quiet := flag.Bool("quiet", false, "关闭运行日志")
	flag.Parse()

	log := zap.NewNop()
	if !*quiet {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	sim, err := rfb.LoadFile(*scenario, log)
	if err != nil {
		log.Fatal("加载场景失败", zap.Error(err))
	}

	results, err := sim.Run()
	if err != nil {
		log.Fatal("仿真失败", zap.Error(err))
	}

	fmt.Printf("终止状态: %s\n", results.FinalStatus)
	fmt.Printf("半循环数: %d  总充电容量: %.3f C  总放电容量: %.3f C\n",
		results.HalfCycles, results.TotalChargeCapacity(), results.TotalDischargeCapacity())

	if err := rfb.Render(results, *out); err != nil {
		log.Fatal("绘图失败", zap.Error(err))
	}
}
