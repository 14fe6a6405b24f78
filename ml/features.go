package ml

import (
	"github.com/go-playground/validator/v10"
)

// DeviceSpec is the immutable hardware description of one mobile device.
// Boolean capabilities are encoded 0/1 as in the training data. JSON field
// names match the dataset column names.
type DeviceSpec struct {
	BatteryPower float64 `json:"battery_power" validate:"required,gte=0"`
	Bluetooth    float64 `json:"blue" validate:"gte=0,lte=1"`
	ClockSpeed   float64 `json:"clock_speed" validate:"gte=0"`
	DualSim      float64 `json:"dual_sim" validate:"gte=0,lte=1"`
	FrontCamera  float64 `json:"fc" validate:"gte=0"`
	FourG        float64 `json:"four_g" validate:"gte=0,lte=1"`
	IntMemory    float64 `json:"int_memory" validate:"gte=0"`
	MobileDepth  float64 `json:"m_dep" validate:"gte=0"`
	MobileWeight float64 `json:"mobile_wt" validate:"required,gte=0"`
	NumCores     float64 `json:"n_cores" validate:"required,gte=1"`
	PrimCamera   float64 `json:"pc" validate:"gte=0"`
	PixelHeight  float64 `json:"px_height" validate:"gte=0"`
	PixelWidth   float64 `json:"px_width" validate:"gte=0"`
	RAM          float64 `json:"ram" validate:"required,gte=0"`
	ScreenHeight float64 `json:"sc_h" validate:"gte=0"`
	ScreenWidth  float64 `json:"sc_w" validate:"gte=0"`
	TalkTime     float64 `json:"talk_time" validate:"gte=0"`
	ThreeG       float64 `json:"three_g" validate:"gte=0,lte=1"`
	TouchScreen  float64 `json:"touch_screen" validate:"gte=0,lte=1"`
	WiFi         float64 `json:"wifi" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// FeatureNames returns the fixed feature ordering. Scaler statistics and
// tree split indices are bound to this order, so it must stay identical
// between training and inference.
func FeatureNames() []string {
	return []string{
		"battery_power",
		"blue",
		"clock_speed",
		"dual_sim",
		"fc",
		"four_g",
		"int_memory",
		"m_dep",
		"mobile_wt",
		"n_cores",
		"pc",
		"px_height",
		"px_width",
		"ram",
		"sc_h",
		"sc_w",
		"talk_time",
		"three_g",
		"touch_screen",
		"wifi",
	}
}

// FeatureVector flattens a spec into the FeatureNames order.
func FeatureVector(spec DeviceSpec) []float64 {
	return []float64{
		spec.BatteryPower,
		spec.Bluetooth,
		spec.ClockSpeed,
		spec.DualSim,
		spec.FrontCamera,
		spec.FourG,
		spec.IntMemory,
		spec.MobileDepth,
		spec.MobileWeight,
		spec.NumCores,
		spec.PrimCamera,
		spec.PixelHeight,
		spec.PixelWidth,
		spec.RAM,
		spec.ScreenHeight,
		spec.ScreenWidth,
		spec.TalkTime,
		spec.ThreeG,
		spec.TouchScreen,
		spec.WiFi,
	}
}

// ValidateSpec checks attribute ranges and presence. Returns a
// *ValidationError describing the first offending field.
func ValidateSpec(spec DeviceSpec) error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += " " + fe.Param()
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return &ValidationError{Reason: err.Error()}
}
