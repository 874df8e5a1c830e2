// Command dofexr applies the depth-of-field effect to a color and depth
// image pair.
//
// Usage:
//
//	dofexr -color beauty.exr -depth depth.exr -out result.exr -near 0.1 -far 100
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/dof"
	"github.com/gogpu/dof/exrio"
	"github.com/gogpu/dof/surface"
)

func main() {
	var (
		colorPath  = flag.String("color", "", "color image (exr, png, jpeg, tiff, webp)")
		depthPath  = flag.String("depth", "", "depth image (exr Z channel or 16-bit grayscale)")
		outPath    = flag.String("out", "dof.exr", "output image (exr, png or tiff)")
		paramsPath = flag.String("params", "", "JSON lens parameter blob")
		savePath   = flag.String("save-params", "", "write the effective parameters to this file")
		near       = flag.Float64("near", 0.1, "camera near plane")
		far        = flag.Float64("far", 100, "camera far plane")
		fovY       = flag.Float64("fovy", 45, "vertical field of view in degrees")
		focus      = flag.Float64("focus", 0, "override focus distance (0 keeps the preset)")
		fStops     = flag.Float64("fstops", 0, "override aperture f-number (0 keeps the preset)")
		linear     = flag.Bool("linear-depth", false, "depth holds view-space distances instead of device depth")
		workers    = flag.Int("workers", 0, "worker goroutines (0 = GOMAXPROCS)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *colorPath == "" || *depthPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	dof.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	params := dof.DefaultOpticalParams()
	if *paramsPath != "" {
		f, err := os.Open(*paramsPath)
		if err != nil {
			log.Fatalf("Failed to open parameters: %v", err)
		}
		params, err = dof.DecodeParams(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to read parameters: %v", err)
		}
	}
	if *focus > 0 {
		params.FocusDistance = float32(*focus)
	}
	if *fStops > 0 {
		params.FStops = float32(*fStops)
	}

	depth, err := exrio.ReadDepth(*depthPath, exrio.DepthOptions{
		Linear: *linear,
		Camera: dof.PerspectiveCamera{Near: float32(*near), Far: float32(*far)},
	})
	if err != nil {
		log.Fatalf("Failed to load depth: %v", err)
	}
	w, h := depth.Width(), depth.Height()

	color, err := exrio.ReadColor(*colorPath, exrio.ReadOptions{Width: w, Height: h})
	if err != nil {
		log.Fatalf("Failed to load color: %v", err)
	}

	cam := dof.PerspectiveCamera{
		Near:    float32(*near),
		Far:     float32(*far),
		FovYRad: float32(*fovY * math.Pi / 180),
		Aspect:  float32(w) / float32(h),
	}

	d, err := dof.New(w, h, dof.NullDeviceHandle{},
		dof.WithWorkers(*workers),
		dof.WithInitialParams(params))
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer d.Close()

	out, err := surface.New(w, h, surface.FormatRGBA32F)
	if err != nil {
		log.Fatalf("Failed to allocate output: %v", err)
	}
	if err := d.ApplyEffect(cam, color, depth, out); err != nil {
		log.Fatalf("Failed to apply effect: %v", err)
	}
	if err := exrio.Write(*outPath, out); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	if *savePath != "" {
		f, err := os.Create(*savePath)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *savePath, err)
		}
		if err := d.SaveParameters(f); err != nil {
			log.Fatalf("Failed to save parameters: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Failed to save parameters: %v", err)
		}
	}

	log.Printf("Result saved to %s (%dx%d)\n", *outPath, w, h)
}
