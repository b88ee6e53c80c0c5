package motionplan

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/popov1212/apollo/spatialmath"
)

// Curve family solvers below follow the Reeds-Shepp sufficient set: SCS, CSC,
// CCC, CCCC, CCSC, and CCSCC words, expanded through the timeflip, reflect,
// and backwards symmetries. All word math runs in normalized coordinates
// where the minimum turning radius is 1.

const rsEps = 1e-10

// ReedSheppPath is a sampled curve between two SE(2) poses. Segment lengths
// are signed and normalized by the turning radius; negative length means the
// segment is driven in reverse.
type ReedSheppPath struct {
	SegsLengths []float64
	SegsTypes   []byte
	TotalLength float64

	X    []float64
	Y    []float64
	Phi  []float64
	Gear []bool
}

type rsCandidate struct {
	lengths []float64
	types   []byte
	total   float64
}

// ReedShepp produces shortest bounded-curvature curves between SE(2) poses
// for a vehicle permitted to drive forward and reverse.
type ReedShepp struct {
	vehicle  *VehicleConfig
	opts     *PlannerOptions
	logger   golog.Logger
	maxKappa float64
}

// NewReedShepp creates a curve generator for the given vehicle.
func NewReedShepp(vehicle *VehicleConfig, opts *PlannerOptions, logger golog.Logger) *ReedShepp {
	maxSteer := vehicle.MaxSteerAngle / vehicle.SteerRatio
	return &ReedShepp{
		vehicle:  vehicle,
		opts:     opts,
		logger:   logger,
		maxKappa: math.Tan(maxSteer) / vehicle.WheelBase,
	}
}

// ShortestRSP returns the shortest sampled Reeds-Shepp curve from the start
// node's pose to the end node's pose, or an error when no candidate word
// reaches the goal.
func (rs *ReedShepp) ShortestRSP(start, end *Node3d) (*ReedSheppPath, error) {
	// express the goal in the start frame, scaled to unit turning radius
	dx := end.X() - start.X()
	dy := end.Y() - start.Y()
	c := math.Cos(start.Phi())
	s := math.Sin(start.Phi())
	x := (c*dx + s*dy) * rs.maxKappa
	y := (-s*dx + c*dy) * rs.maxKappa
	phi := spatialmath.NormalizeAngle(end.Phi() - start.Phi())

	candidates := rs.generateRSPs(x, y, phi)
	if len(candidates) == 0 {
		return nil, errors.New("no reeds-shepp word solves the configuration pair")
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].total < candidates[j].total })

	for _, candidate := range candidates {
		path := rs.interpolate(start, candidate)
		if rs.reachesGoal(path, end) {
			return path, nil
		}
	}
	return nil, errors.New("no reeds-shepp candidate reaches the goal pose")
}

func (rs *ReedShepp) reachesGoal(path *ReedSheppPath, end *Node3d) bool {
	last := len(path.X) - 1
	return math.Abs(path.X[last]-end.X()) < 1e-3 &&
		math.Abs(path.Y[last]-end.Y()) < 1e-3 &&
		math.Abs(spatialmath.AngleDiff(path.Phi[last], end.Phi())) < 1e-3
}

func (rs *ReedShepp) generateRSPs(x, y, phi float64) []rsCandidate {
	var out []rsCandidate
	add := func(types string, lengths ...float64) {
		total := 0.0
		for _, l := range lengths {
			total += math.Abs(l)
		}
		out = append(out, rsCandidate{lengths: lengths, types: []byte(types), total: total})
	}
	scs(x, y, phi, add)
	csc(x, y, phi, add)
	ccc(x, y, phi, add)
	cccc(x, y, phi, add)
	ccsc(x, y, phi, add)
	ccscc(x, y, phi, add)
	return out
}

// interpolate samples the candidate at the configured step size starting at
// the start node's pose, in world coordinates.
func (rs *ReedShepp) interpolate(start *Node3d, candidate rsCandidate) *ReedSheppPath {
	path := &ReedSheppPath{
		SegsLengths: candidate.lengths,
		SegsTypes:   candidate.types,
		TotalLength: candidate.total / rs.maxKappa,
	}
	radius := 1 / rs.maxKappa
	step := rs.opts.StepSize * rs.maxKappa

	px, py, pphi := start.X(), start.Y(), start.Phi()
	firstGear := true
	for _, l := range candidate.lengths {
		if math.Abs(l) > rsEps {
			firstGear = l > 0
			break
		}
	}
	path.X = append(path.X, px)
	path.Y = append(path.Y, py)
	path.Phi = append(path.Phi, pphi)
	path.Gear = append(path.Gear, firstGear)

	for i, l := range candidate.lengths {
		if math.Abs(l) < rsEps {
			continue
		}
		segType := candidate.types[i]
		gear := l > 0
		samples := int(math.Ceil(math.Abs(l) / step))
		for k := 1; k <= samples; k++ {
			w := math.Min(float64(k)*step, math.Abs(l))
			if l < 0 {
				w = -w
			}
			var nx, ny, nphi float64
			switch segType {
			case 'S':
				nx = px + w*radius*math.Cos(pphi)
				ny = py + w*radius*math.Sin(pphi)
				nphi = pphi
			case 'L':
				nx = px + (math.Sin(pphi+w)-math.Sin(pphi))*radius
				ny = py - (math.Cos(pphi+w)-math.Cos(pphi))*radius
				nphi = pphi + w
			case 'R':
				nx = px - (math.Sin(pphi-w)-math.Sin(pphi))*radius
				ny = py + (math.Cos(pphi-w)-math.Cos(pphi))*radius
				nphi = pphi - w
			}
			path.X = append(path.X, nx)
			path.Y = append(path.Y, ny)
			path.Phi = append(path.Phi, spatialmath.NormalizeAngle(nphi))
			path.Gear = append(path.Gear, gear)
		}
		// advance the segment frame to its exact endpoint
		w := l
		switch segType {
		case 'S':
			px += w * radius * math.Cos(pphi)
			py += w * radius * math.Sin(pphi)
		case 'L':
			px += (math.Sin(pphi+w) - math.Sin(pphi)) * radius
			py -= (math.Cos(pphi+w) - math.Cos(pphi)) * radius
			pphi += w
		case 'R':
			px -= (math.Sin(pphi-w) - math.Sin(pphi)) * radius
			py += (math.Cos(pphi-w) - math.Cos(pphi)) * radius
			pphi -= w
		}
	}
	return path
}

func polar(x, y float64) (float64, float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}

// mod2pi wraps into [-pi, pi).
func mod2pi(x float64) float64 {
	v := math.Mod(x, 2*math.Pi)
	if v < -math.Pi {
		v += 2 * math.Pi
	} else if v >= math.Pi {
		v -= 2 * math.Pi
	}
	return v
}

func tauOmega(u, v, xi, eta, phi float64) (float64, float64) {
	delta := mod2pi(u - v)
	a := math.Sin(u) - math.Sin(delta)
	b := math.Cos(u) - math.Cos(delta) - 1
	t1 := math.Atan2(eta*a-xi*b, xi*a+eta*b)
	t2 := 2*(math.Cos(delta)-math.Cos(v)-math.Cos(u)) + 3
	var tau float64
	if t2 < 0 {
		tau = mod2pi(t1 + math.Pi)
	} else {
		tau = mod2pi(t1)
	}
	return tau, mod2pi(tau - u + v - phi)
}

type addFunc func(types string, lengths ...float64)

// straight-curve-straight words
func sls(x, y, phi float64) (float64, float64, float64, bool) {
	phi = mod2pi(phi)
	if phi > rsEps && phi < math.Pi*0.99 {
		xd := -y/math.Tan(phi) + x
		t := xd - math.Tan(phi/2)
		u := phi
		if y > 0 {
			v := math.Hypot(x-xd, y) - math.Tan(phi/2)
			return t, u, v, true
		} else if y < 0 {
			v := -math.Hypot(x-xd, y) - math.Tan(phi/2)
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

func scs(x, y, phi float64, add addFunc) {
	if t, u, v, ok := sls(x, y, phi); ok {
		add("SLS", t, u, v)
	}
	if t, u, v, ok := sls(x, -y, -phi); ok {
		add("SRS", t, u, v)
	}
}

// L+ S+ L+
func lpSpLp(x, y, phi float64) (float64, float64, float64, bool) {
	u, t := polar(x-math.Sin(phi), y-1+math.Cos(phi))
	if t >= -rsEps {
		v := mod2pi(phi - t)
		if v >= -rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// L+ S+ R+
func lpSpRp(x, y, phi float64) (float64, float64, float64, bool) {
	u1, t1 := polar(x+math.Sin(phi), y-1-math.Cos(phi))
	u1 = u1 * u1
	if u1 >= 4 {
		u := math.Sqrt(u1 - 4)
		theta := math.Atan2(2, u)
		t := mod2pi(t1 + theta)
		v := mod2pi(t - phi)
		if t >= -rsEps && v >= -rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

func csc(x, y, phi float64, add addFunc) {
	if t, u, v, ok := lpSpLp(x, y, phi); ok {
		add("LSL", t, u, v)
	}
	if t, u, v, ok := lpSpLp(-x, y, -phi); ok { // timeflip
		add("LSL", -t, -u, -v)
	}
	if t, u, v, ok := lpSpLp(x, -y, -phi); ok { // reflect
		add("RSR", t, u, v)
	}
	if t, u, v, ok := lpSpLp(-x, -y, phi); ok { // timeflip + reflect
		add("RSR", -t, -u, -v)
	}
	if t, u, v, ok := lpSpRp(x, y, phi); ok {
		add("LSR", t, u, v)
	}
	if t, u, v, ok := lpSpRp(-x, y, -phi); ok {
		add("LSR", -t, -u, -v)
	}
	if t, u, v, ok := lpSpRp(x, -y, -phi); ok {
		add("RSL", t, u, v)
	}
	if t, u, v, ok := lpSpRp(-x, -y, phi); ok {
		add("RSL", -t, -u, -v)
	}
}

// L+ R- L
func lpRmL(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x - math.Sin(phi)
	eta := y - 1 + math.Cos(phi)
	u1, theta := polar(xi, eta)
	if u1 <= 4 {
		u := -2 * math.Asin(u1/4)
		t := mod2pi(theta + u/2 + math.Pi)
		v := mod2pi(phi - t + u)
		if t >= -rsEps && u <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

func ccc(x, y, phi float64, add addFunc) {
	if t, u, v, ok := lpRmL(x, y, phi); ok {
		add("LRL", t, u, v)
	}
	if t, u, v, ok := lpRmL(-x, y, -phi); ok {
		add("LRL", -t, -u, -v)
	}
	if t, u, v, ok := lpRmL(x, -y, -phi); ok {
		add("RLR", t, u, v)
	}
	if t, u, v, ok := lpRmL(-x, -y, phi); ok {
		add("RLR", -t, -u, -v)
	}
	// backwards
	xb := x*math.Cos(phi) + y*math.Sin(phi)
	yb := x*math.Sin(phi) - y*math.Cos(phi)
	if t, u, v, ok := lpRmL(xb, yb, phi); ok {
		add("LRL", v, u, t)
	}
	if t, u, v, ok := lpRmL(-xb, yb, -phi); ok {
		add("LRL", -v, -u, -t)
	}
	if t, u, v, ok := lpRmL(xb, -yb, -phi); ok {
		add("RLR", v, u, t)
	}
	if t, u, v, ok := lpRmL(-xb, -yb, phi); ok {
		add("RLR", -v, -u, -t)
	}
}

// L+ R+ L- R-
func lpRupLumRm(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho := 0.25 * (2 + math.Hypot(xi, eta))
	if rho <= 1 {
		u := math.Acos(rho)
		t, v := tauOmega(u, -u, xi, eta, phi)
		if t >= -rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// L+ R- L- R+
func lpRumLumRp(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho := (20 - xi*xi - eta*eta) / 16
	if rho >= 0 && rho <= 1 {
		u := -math.Acos(rho)
		if u >= -math.Pi/2 {
			t, v := tauOmega(u, u, xi, eta, phi)
			if t >= -rsEps && v >= -rsEps {
				return t, u, v, true
			}
		}
	}
	return 0, 0, 0, false
}

func cccc(x, y, phi float64, add addFunc) {
	if t, u, v, ok := lpRupLumRm(x, y, phi); ok {
		add("LRLR", t, u, -u, v)
	}
	if t, u, v, ok := lpRupLumRm(-x, y, -phi); ok {
		add("LRLR", -t, -u, u, -v)
	}
	if t, u, v, ok := lpRupLumRm(x, -y, -phi); ok {
		add("RLRL", t, u, -u, v)
	}
	if t, u, v, ok := lpRupLumRm(-x, -y, phi); ok {
		add("RLRL", -t, -u, u, -v)
	}
	if t, u, v, ok := lpRumLumRp(x, y, phi); ok {
		add("LRLR", t, u, u, v)
	}
	if t, u, v, ok := lpRumLumRp(-x, y, -phi); ok {
		add("LRLR", -t, -u, -u, -v)
	}
	if t, u, v, ok := lpRumLumRp(x, -y, -phi); ok {
		add("RLRL", t, u, u, v)
	}
	if t, u, v, ok := lpRumLumRp(-x, -y, phi); ok {
		add("RLRL", -t, -u, -u, -v)
	}
}

// L+ R- S- L-
func lpRmSmLm(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x - math.Sin(phi)
	eta := y - 1 + math.Cos(phi)
	rho, theta := polar(xi, eta)
	if rho >= 2 {
		r := math.Sqrt(rho*rho - 4)
		u := 2 - r
		t := mod2pi(theta + math.Atan2(r, -2))
		v := mod2pi(phi - math.Pi/2 - t)
		if t >= -rsEps && u <= rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

// L+ R- S- R-
func lpRmSmRm(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho, theta := polar(-eta, xi)
	if rho >= 2 {
		t := theta
		u := 2 - rho
		v := mod2pi(t + math.Pi/2 - phi)
		if t >= -rsEps && u <= rsEps && v <= rsEps {
			return t, u, v, true
		}
	}
	return 0, 0, 0, false
}

func ccsc(x, y, phi float64, add addFunc) {
	halfPi := math.Pi / 2
	if t, u, v, ok := lpRmSmLm(x, y, phi); ok {
		add("LRSL", t, -halfPi, u, v)
	}
	if t, u, v, ok := lpRmSmLm(-x, y, -phi); ok {
		add("LRSL", -t, halfPi, -u, -v)
	}
	if t, u, v, ok := lpRmSmLm(x, -y, -phi); ok {
		add("RLSR", t, -halfPi, u, v)
	}
	if t, u, v, ok := lpRmSmLm(-x, -y, phi); ok {
		add("RLSR", -t, halfPi, -u, -v)
	}
	if t, u, v, ok := lpRmSmRm(x, y, phi); ok {
		add("LRSR", t, -halfPi, u, v)
	}
	if t, u, v, ok := lpRmSmRm(-x, y, -phi); ok {
		add("LRSR", -t, halfPi, -u, -v)
	}
	if t, u, v, ok := lpRmSmRm(x, -y, -phi); ok {
		add("RLSL", t, -halfPi, u, v)
	}
	if t, u, v, ok := lpRmSmRm(-x, -y, phi); ok {
		add("RLSL", -t, halfPi, -u, -v)
	}
	// backwards
	xb := x*math.Cos(phi) + y*math.Sin(phi)
	yb := x*math.Sin(phi) - y*math.Cos(phi)
	if t, u, v, ok := lpRmSmLm(xb, yb, phi); ok {
		add("LSRL", v, u, -halfPi, t)
	}
	if t, u, v, ok := lpRmSmLm(-xb, yb, -phi); ok {
		add("LSRL", -v, -u, halfPi, -t)
	}
	if t, u, v, ok := lpRmSmLm(xb, -yb, -phi); ok {
		add("RSLR", v, u, -halfPi, t)
	}
	if t, u, v, ok := lpRmSmLm(-xb, -yb, phi); ok {
		add("RSLR", -v, -u, halfPi, -t)
	}
	if t, u, v, ok := lpRmSmRm(xb, yb, phi); ok {
		add("RSRL", v, u, -halfPi, t)
	}
	if t, u, v, ok := lpRmSmRm(-xb, yb, -phi); ok {
		add("RSRL", -v, -u, halfPi, -t)
	}
	if t, u, v, ok := lpRmSmRm(xb, -yb, -phi); ok {
		add("LSLR", v, u, -halfPi, t)
	}
	if t, u, v, ok := lpRmSmRm(-xb, -yb, phi); ok {
		add("LSLR", -v, -u, halfPi, -t)
	}
}

// L+ R- S- L- R+
func lpRmSLmRp(x, y, phi float64) (float64, float64, float64, bool) {
	xi := x + math.Sin(phi)
	eta := y - 1 - math.Cos(phi)
	rho, _ := polar(xi, eta)
	if rho >= 2 {
		u := 4 - math.Sqrt(rho*rho-4)
		if u <= rsEps {
			t := mod2pi(math.Atan2((4-u)*xi-2*eta, -2*xi+(4-u)*eta))
			v := mod2pi(t - phi)
			if t >= -rsEps && v >= -rsEps {
				return t, u, v, true
			}
		}
	}
	return 0, 0, 0, false
}

func ccscc(x, y, phi float64, add addFunc) {
	halfPi := math.Pi / 2
	if t, u, v, ok := lpRmSLmRp(x, y, phi); ok {
		add("LRSLR", t, -halfPi, u, -halfPi, v)
	}
	if t, u, v, ok := lpRmSLmRp(-x, y, -phi); ok {
		add("LRSLR", -t, halfPi, -u, halfPi, -v)
	}
	if t, u, v, ok := lpRmSLmRp(x, -y, -phi); ok {
		add("RLSRL", t, -halfPi, u, -halfPi, v)
	}
	if t, u, v, ok := lpRmSLmRp(-x, -y, phi); ok {
		add("RLSRL", -t, halfPi, -u, halfPi, -v)
	}
}
