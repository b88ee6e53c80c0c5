// package main runs the open space planner on a JSON request file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"

	"github.com/popov1212/apollo/motionplan"
)

type planRequest struct {
	Start     [3]float64                 `json:"start"`
	End       [3]float64                 `json:"end"`
	XYBounds  []float64                  `json:"xy_bounds"`
	Obstacles [][][2]float64             `json:"obstacles"`
	Vehicle   *motionplan.VehicleConfig  `json:"vehicle,omitempty"`
	Options   *motionplan.PlannerOptions `json:"options,omitempty"`
}

func main() {
	if err := realMain(); err != nil {
		panic(err)
	}
}

func realMain() error {
	verbose := flag.Bool("v", false, "verbose")
	outPath := flag.String("o", "", "write the result to this file instead of stdout")

	flag.Parse()
	if len(flag.Args()) == 0 {
		return fmt.Errorf("need a json request file")
	}

	var logger golog.Logger
	if *verbose {
		logger = golog.NewDevelopmentLogger("openspace-plan")
	} else {
		logger = golog.NewLogger("openspace-plan")
	}

	logger.Infof("reading plan request from %s", flag.Arg(0))
	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return err
	}

	req := planRequest{}
	if err := json.Unmarshal(content, &req); err != nil {
		return err
	}
	if req.Vehicle == nil {
		req.Vehicle = motionplan.NewDefaultVehicleConfig()
	}
	if req.Options == nil {
		req.Options = motionplan.NewDefaultPlannerOptions()
	}

	obstacles := make([][]r2.Point, 0, len(req.Obstacles))
	for _, vertices := range req.Obstacles {
		points := make([]r2.Point, 0, len(vertices))
		for _, v := range vertices {
			points = append(points, r2.Point{X: v[0], Y: v[1]})
		}
		obstacles = append(obstacles, points)
	}

	planner, err := motionplan.NewHybridAStar(req.Vehicle, req.Options, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := planner.Plan(
		req.Start[0], req.Start[1], req.Start[2],
		req.End[0], req.End[1], req.End[2],
		req.XYBounds, obstacles)
	if err != nil {
		return err
	}
	logger.Infof("planned %d points in %s", len(result.X), time.Since(start))

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if *outPath != "" {
		return os.WriteFile(*outPath, encoded, 0o600)
	}
	fmt.Println(string(encoded))
	return nil
}
