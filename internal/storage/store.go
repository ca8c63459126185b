package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/rigsim/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string    `json:"id"`
	Robot     string    `json:"robot"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Dt        float64   `json:"dt"`
	Duration  float64   `json:"duration"`
	ResetAt   []float64 `json:"reset_at,omitempty"`

	Columns  []string           `json:"columns"`
	PWMPorts int                `json:"pwm_ports"`
	Metrics  map[string]float64 `json:"metrics"`

	Ticks        int      `json:"ticks"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Resets       int      `json:"resets"`
	ConfigErrors []string `json:"config_errors,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// RunInfo describes what produced a result.
type RunInfo struct {
	Robot    string
	Source   string
	Dt       float64
	Duration float64
	ResetAt  []float64
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	now := s.now()
	runID, err := s.newID(info.Robot, now)
	if err != nil {
		return "", err
	}
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := metadata(runID, now, info, result)
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, telemetryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result, meta.PWMPorts); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

// newID names a run after the robot and second; later runs in the same
// second get a numeric suffix.
func (s *Store) newID(robot string, now time.Time) (string, error) {
	if robot == "" {
		robot = "robot"
	}
	base := fmt.Sprintf("%s_%d", robot, now.Unix())
	id := base
	for i := 1; ; i++ {
		_, err := os.Stat(filepath.Join(s.baseDir, id))
		if os.IsNotExist(err) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}

func metadata(id string, now time.Time, info RunInfo, result *sim.Result) RunMetadata {
	meta := RunMetadata{
		ID:        id,
		Robot:     info.Robot,
		Source:    info.Source,
		Timestamp: now,
		Dt:        info.Dt,
		Duration:  info.Duration,
		ResetAt:   info.ResetAt,
		Columns:   result.Columns,
		Metrics:   result.Metrics,
		Ticks:     result.Ticks,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
		Resets:    result.Resets,
	}
	for _, c := range result.Controls {
		meta.PWMPorts = max(meta.PWMPorts, len(c))
	}
	for _, e := range result.ConfigErrors {
		meta.ConfigErrors = append(meta.ConfigErrors, e.Error())
	}
	for _, e := range result.Errors {
		meta.Errors = append(meta.Errors, e.Error())
	}
	return meta
}

// WriteCSV writes time, every telemetry column, then pwm0..pwmN-1. The
// first row has no control and is zero-filled.
func WriteCSV(out io.Writer, result *sim.Result, pwmPorts int) error {
	w := csv.NewWriter(out)

	header := append([]string{"time"}, result.Columns...)
	for i := 0; i < pwmPorts; i++ {
		header = append(header, fmt.Sprintf("pwm%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.Samples {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.Samples[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}

		var ctrl []float64
		if i > 0 && i-1 < len(result.Controls) {
			ctrl = result.Controls[i-1]
		}
		for j := 0; j < pwmPorts; j++ {
			v := 0.0
			if j < len(ctrl) {
				v = ctrl[j]
			}
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}

		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.Before(runs[j].Timestamp)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// Telemetry is a run's CSV read back.
type Telemetry struct {
	Header  []string
	Times   []float64
	Samples [][]float64
}

// Column returns the series for a header name, excluding time.
func (t *Telemetry) Column(name string) ([]float64, bool) {
	for i, h := range t.Header {
		if h != name || i == 0 {
			continue
		}
		out := make([]float64, len(t.Samples))
		for r, row := range t.Samples {
			if i-1 < len(row) {
				out[r] = row[i-1]
			}
		}
		return out, true
	}
	return nil, false
}

func (s *Store) LoadSamples(runID string) (*Telemetry, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Base(runID), telemetryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tel := &Telemetry{Times: []float64{}, Samples: [][]float64{}}
	if len(records) == 0 {
		return tel, nil
	}
	tel.Header = records[0]

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				val = 0
			}
			row = append(row, val)
		}
		tel.Times = append(tel.Times, t)
		tel.Samples = append(tel.Samples, row)
	}
	return tel, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
