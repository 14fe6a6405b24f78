package ml

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const labelColumn = "price_range"

// LoadDataset reads a column-per-attribute CSV with one header row. When
// the price_range column is present every row must carry a label and the
// returned labels slice is aligned with the specs; otherwise labels is nil.
func LoadDataset(path string) ([]DeviceSpec, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open dataset")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read dataset header")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range FeatureNames() {
		if _, ok := columns[name]; !ok {
			return nil, nil, errors.Errorf("dataset is missing column %s", name)
		}
	}
	labelIdx, labeled := columns[labelColumn]

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read dataset rows")
	}

	specs := make([]DeviceSpec, 0, len(rows))
	var labels []int
	if labeled {
		labels = make([]int, 0, len(rows))
	}
	for n, row := range rows {
		spec, err := specFromRow(row, columns)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d", n+2)
		}
		specs = append(specs, spec)

		if labeled {
			label, err := strconv.Atoi(row[labelIdx])
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d: bad %s", n+2, labelColumn)
			}
			labels = append(labels, label)
		}
	}
	return specs, labels, nil
}

func specFromRow(row []string, columns map[string]int) (DeviceSpec, error) {
	var spec DeviceSpec
	fields := map[string]*float64{
		"battery_power": &spec.BatteryPower,
		"blue":          &spec.Bluetooth,
		"clock_speed":   &spec.ClockSpeed,
		"dual_sim":      &spec.DualSim,
		"fc":            &spec.FrontCamera,
		"four_g":        &spec.FourG,
		"int_memory":    &spec.IntMemory,
		"m_dep":         &spec.MobileDepth,
		"mobile_wt":     &spec.MobileWeight,
		"n_cores":       &spec.NumCores,
		"pc":            &spec.PrimCamera,
		"px_height":     &spec.PixelHeight,
		"px_width":      &spec.PixelWidth,
		"ram":           &spec.RAM,
		"sc_h":          &spec.ScreenHeight,
		"sc_w":          &spec.ScreenWidth,
		"talk_time":     &spec.TalkTime,
		"three_g":       &spec.ThreeG,
		"touch_screen":  &spec.TouchScreen,
		"wifi":          &spec.WiFi,
	}

	for name, target := range fields {
		idx := columns[name]
		if idx >= len(row) {
			return DeviceSpec{}, errors.Errorf("missing value for %s", name)
		}
		value, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return DeviceSpec{}, errors.Wrapf(err, "bad %s", name)
		}
		*target = value
	}
	return spec, nil
}
