package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/rigsim/internal/sim"
)

type ExportData struct {
	Robot    string             `json:"robot"`
	Source   string             `json:"source"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Columns  []string           `json:"columns"`
	Times    []float64          `json:"times"`
	Samples  [][]float64        `json:"samples"`
	Controls [][]float64        `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

func NewExportData(info RunInfo, result *sim.Result) ExportData {
	data := ExportData{
		Robot:    info.Robot,
		Source:   info.Source,
		Dt:       info.Dt,
		Duration: info.Duration,
		Steps:    result.Ticks,
		Columns:  result.Columns,
		Times:    result.Times,
		Samples:  make([][]float64, len(result.Samples)),
		Controls: result.Controls,
		Metrics:  result.Metrics,
	}
	for i, s := range result.Samples {
		data.Samples[i] = s
	}
	return data
}

func ExportJSON(w io.Writer, info RunInfo, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(info, result))
}

func ExportJSONFile(path string, info RunInfo, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := ExportJSON(file, info, result); err != nil {
		return err
	}
	return file.Close()
}
