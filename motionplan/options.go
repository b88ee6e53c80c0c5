// Package motionplan plans collision-free, kinematically feasible trajectories
// for a car-like vehicle through an open 2d workspace cluttered with polygonal
// obstacles. The coarse planner is a hybrid A* search over a discretized SE(2)
// grid with Reeds-Shepp analytic expansion and a holonomic-with-obstacles
// heuristic, followed by a speed profile pass.
package motionplan

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// default values for planning options.
const (
	// Motion primitives per expansion, half forward and half reverse.
	defaultNextNodeNum = 10

	// Arc length per integration substep of a motion primitive, in meters.
	defaultStepSize = 0.1

	// Quantization of x and y for node indexing and for the heuristic grid.
	defaultXYGridResolution = 0.3

	// Quantization of heading for node indexing, in radians.
	defaultPhiGridResolution = 0.15

	// Edge cost weights.
	defaultTrajForwardPenalty     = 1.0
	defaultTrajBackPenalty        = 1.0
	defaultTrajGearSwitchPenalty  = 10.0
	defaultTrajSteerPenalty       = 10.0
	defaultTrajSteerChangePenalty = 5.0

	// Discretization interval of the timed output, in seconds.
	defaultDeltaT = 0.5

	// Longitudinal jerk magnitude cap for the s-curve profile, m/s^3.
	defaultLongitudinalJerkBound = 4.0

	// S-curve objective weights.
	defaultSWeight        = 1.0
	defaultVelocityWeight = 1.0
	defaultAccWeight      = 1.0
	defaultJerkWeight     = 1.0
	defaultRefWeight      = 10.0
)

// default values for the vehicle footprint, a full-size sedan.
const (
	defaultVehicleLength           = 4.933
	defaultVehicleWidth            = 2.11
	defaultVehicleBackEdgeToCenter = 1.043
	defaultVehicleWheelBase        = 2.8448
	defaultVehicleMaxSteerAngle    = 8.20304748437
	defaultVehicleSteerRatio       = 16.0
)

// VehicleConfig describes the footprint and steering geometry of the planned
// vehicle. MaxSteerAngle is measured at the steering wheel; the road wheel
// limit is MaxSteerAngle/SteerRatio.
type VehicleConfig struct {
	Length           float64 `json:"length"`
	Width            float64 `json:"width"`
	BackEdgeToCenter float64 `json:"back_edge_to_center"`
	WheelBase        float64 `json:"wheel_base"`
	MaxSteerAngle    float64 `json:"max_steer_angle"`
	SteerRatio       float64 `json:"steer_ratio"`
}

// NewDefaultVehicleConfig returns the default vehicle geometry.
func NewDefaultVehicleConfig() *VehicleConfig {
	return &VehicleConfig{
		Length:           defaultVehicleLength,
		Width:            defaultVehicleWidth,
		BackEdgeToCenter: defaultVehicleBackEdgeToCenter,
		WheelBase:        defaultVehicleWheelBase,
		MaxSteerAngle:    defaultVehicleMaxSteerAngle,
		SteerRatio:       defaultVehicleSteerRatio,
	}
}

// Validate checks the vehicle geometry for consistency.
func (vc *VehicleConfig) Validate() error {
	var err error
	if vc.Length <= 0 || vc.Width <= 0 {
		err = multierr.Append(err, errors.New("vehicle length and width must be positive"))
	}
	if vc.BackEdgeToCenter < 0 || vc.BackEdgeToCenter > vc.Length {
		err = multierr.Append(err, errors.New("back_edge_to_center must lie within the vehicle length"))
	}
	if vc.WheelBase <= 0 {
		err = multierr.Append(err, errors.New("wheel_base must be positive"))
	}
	if vc.SteerRatio <= 0 {
		err = multierr.Append(err, errors.New("steer_ratio must be positive"))
	}
	if vc.MaxSteerAngle <= 0 || vc.MaxSteerAngle/vc.SteerRatio >= math.Pi/2 {
		err = multierr.Append(err, errors.New("max_steer_angle must be positive and below a quarter turn at the road wheel"))
	}
	return err
}

// SCurveConfig weights the terms of the piecewise-jerk speed objective.
type SCurveConfig struct {
	SWeight        float64 `json:"s_weight"`
	VelocityWeight float64 `json:"velocity_weight"`
	AccWeight      float64 `json:"acc_weight"`
	JerkWeight     float64 `json:"jerk_weight"`
	RefWeight      float64 `json:"ref_weight"`
}

// PlannerOptions are a set of options to be passed to the hybrid A* planner
// specifying how to discretize, weight, and time the search.
type PlannerOptions struct {
	// Number of motion primitives per expansion. Must be even and at least 4;
	// the first half drives forward, the second half reverses.
	NextNodeNum int `json:"next_node_num"`

	// Arc length per integration substep of a primitive.
	StepSize float64 `json:"step_size"`

	// Node index quantization.
	XYGridResolution  float64 `json:"xy_grid_resolution"`
	PhiGridResolution float64 `json:"phi_grid_resolution"`

	// Edge cost weights.
	TrajForwardPenalty     float64 `json:"traj_forward_penalty"`
	TrajBackPenalty        float64 `json:"traj_back_penalty"`
	TrajGearSwitchPenalty  float64 `json:"traj_gear_switch_penalty"`
	TrajSteerPenalty       float64 `json:"traj_steer_penalty"`
	TrajSteerChangePenalty float64 `json:"traj_steer_change_penalty"`

	// Discretization interval of the timed output.
	DeltaT float64 `json:"delta_t"`

	// UseSCurveSpeedSmooth selects the piecewise-jerk QP speed profile
	// instead of finite differencing.
	UseSCurveSpeedSmooth bool `json:"use_s_curve_speed_smooth"`

	// Jerk magnitude cap applied in the s-curve profile.
	LongitudinalJerkBound float64 `json:"longitudinal_jerk_bound"`

	SCurve SCurveConfig `json:"s_curve_config"`
}

// NewDefaultPlannerOptions specifies a set of default options for the planner.
func NewDefaultPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		NextNodeNum:            defaultNextNodeNum,
		StepSize:               defaultStepSize,
		XYGridResolution:       defaultXYGridResolution,
		PhiGridResolution:      defaultPhiGridResolution,
		TrajForwardPenalty:     defaultTrajForwardPenalty,
		TrajBackPenalty:        defaultTrajBackPenalty,
		TrajGearSwitchPenalty:  defaultTrajGearSwitchPenalty,
		TrajSteerPenalty:       defaultTrajSteerPenalty,
		TrajSteerChangePenalty: defaultTrajSteerChangePenalty,
		DeltaT:                 defaultDeltaT,
		LongitudinalJerkBound:  defaultLongitudinalJerkBound,
		SCurve: SCurveConfig{
			SWeight:        defaultSWeight,
			VelocityWeight: defaultVelocityWeight,
			AccWeight:      defaultAccWeight,
			JerkWeight:     defaultJerkWeight,
			RefWeight:      defaultRefWeight,
		},
	}
}

// Validate checks the options for consistency.
func (po *PlannerOptions) Validate() error {
	var err error
	if po.NextNodeNum < 4 || po.NextNodeNum%2 != 0 {
		err = multierr.Append(err, errors.New("next_node_num must be even and at least 4"))
	}
	if po.StepSize <= 0 {
		err = multierr.Append(err, errors.New("step_size must be positive"))
	}
	if po.XYGridResolution <= 0 || po.PhiGridResolution <= 0 {
		err = multierr.Append(err, errors.New("grid resolutions must be positive"))
	}
	if po.StepSize > math.Sqrt2*po.XYGridResolution {
		err = multierr.Append(err, errors.New("step_size must not exceed the primitive arc length"))
	}
	if po.DeltaT <= 0 {
		err = multierr.Append(err, errors.New("delta_t must be positive"))
	}
	if po.LongitudinalJerkBound <= 0 {
		err = multierr.Append(err, errors.New("longitudinal_jerk_bound must be positive"))
	}
	return err
}
