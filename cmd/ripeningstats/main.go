// Command ripeningstats runs a batch hole-pairing analysis over two
// annotated panels and reports ripening statistics: matched sinks, area
// changes, unmatched holes, and small-hole capture aggregates.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"vacancy-tracker/internal/annotation"
	"vacancy-tracker/internal/config"
	"vacancy-tracker/internal/hole"
	"vacancy-tracker/internal/session"
	"vacancy-tracker/internal/version"
	"vacancy-tracker/pkg/geometry"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/tiff"
)

func main() {
	annotationsPath := flag.String("annotations", "", "Path to annotations JSON")
	beforeID := flag.String("before", "", "Before-panel id")
	afterID := flag.String("after", "", "After-panel id")
	configPath := flag.String("config", "", "Optional analysis config (TOML)")
	imagePath := flag.String("image", "", "Optional micrograph (TIFF, PNG, or JPEG) to derive the image center")
	csvPath := flag.String("csv", "", "Optional sectioned-CSV output path")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *annotationsPath == "" || *beforeID == "" || *afterID == "" {
		fmt.Println("Usage: ripeningstats -annotations <path> -before <panel> -after <panel> [-config analysis.toml] [-image scan.tif] [-csv out.csv]")
		os.Exit(1)
	}
	if *beforeID == *afterID {
		logger.Fatal("before and after panels must differ")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	set, err := annotation.LoadSet(*annotationsPath)
	if err != nil {
		logger.Fatal("failed to load annotations", "err", err)
	}
	beforePanel, ok := set.Panel(*beforeID)
	if !ok {
		logger.Fatal("before panel not found", "panel", *beforeID)
	}
	afterPanel, ok := set.Panel(*afterID)
	if !ok {
		logger.Fatal("after panel not found", "panel", *afterID)
	}

	center := beforePanel.Center()
	var size geometry.Size
	if beforePanel.ImageSize != nil {
		size = *beforePanel.ImageSize
	}
	if *imagePath != "" {
		center, size, err = centerFromImage(*imagePath)
		if err != nil {
			logger.Fatal("failed to read micrograph", "err", err)
		}
		logger.Debug("image center derived from micrograph", "center", center, "size", size)
	}

	scale := cfg.CalibrationScale
	if beforePanel.CalibrationScale > 0 {
		scale = beforePanel.Scale()
	}

	beforeHoles := beforePanel.Holes()
	afterHoles := afterPanel.Holes()
	logger.Debug("annotations loaded",
		"before_holes", len(beforeHoles), "after_holes", len(afterHoles), "scale_nm_per_px", scale)

	stats := hole.AnalyzeRipening(beforeHoles, afterHoles, hole.AnalysisConfig{
		SinkThresholdNm2: cfg.SinkThresholdNm2,
		MatchToleranceNm: cfg.MatchToleranceNm,
		ImageCenterPx:    center,
		CalibrationScale: scale,
	})

	printReport(beforePanel, afterPanel, cfg, stats)

	if *csvPath != "" {
		sess := buildSession(beforePanel, afterPanel, cfg, center, size, scale, stats)
		if err := sess.ExportCSVFile(*csvPath); err != nil {
			logger.Fatal("failed to write CSV", "err", err)
		}
		logger.Info("CSV written", "path", *csvPath)
	}
}

// centerFromImage decodes a micrograph and returns its center and size in
// pixels.
func centerFromImage(path string) (geometry.Point2D, geometry.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Point2D{}, geometry.Size{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return geometry.Point2D{}, geometry.Size{}, err
	}
	bounds := img.Bounds()
	size := geometry.NewSize(float64(bounds.Dx()), float64(bounds.Dy()))
	return size.Center(), size, nil
}

// printReport writes the analysis summary in the fixed-width table style
// of the other cmd tools.
func printReport(before, after *annotation.Panel, cfg config.Config, stats hole.RipeningStats) {
	fmt.Printf("ripeningstats v%s\n\n", version.Version)
	fmt.Printf("Panels: %s -> %s\n", before.ID, after.ID)
	fmt.Printf("Sink threshold: %.2f nm^2, match tolerance: %.2f nm\n\n",
		cfg.SinkThresholdNm2, cfg.MatchToleranceNm)

	fmt.Printf("Matched sink pairings: %d\n", len(stats.Pairings))
	fmt.Printf("%-9s %8s %8s %12s %12s %12s %12s\n",
		"ID", "Before", "After", "A0 (nm2)", "dA (nm2)", "r (nm)", "sqrtA0/r")
	for _, p := range stats.Pairings {
		fmt.Printf("%-9s %8d %8d %12.3f %12.3f %12.3f %12.4f\n",
			p.PairingID, p.BeforeHole.PolygonID, p.AfterHole.PolygonID,
			p.BeforeHole.AreaNm2, p.AreaChangeNm2, p.DistanceToCenterNm, p.SqrtA0OverR)
	}

	fmt.Printf("\nUnmatched before-sinks: %d", len(stats.UnmatchedBefore))
	for _, h := range stats.UnmatchedBefore {
		fmt.Printf("  #%d", h.PolygonID)
	}
	fmt.Printf("\nUnmatched after-sinks:  %d", len(stats.UnmatchedAfter))
	for _, h := range stats.UnmatchedAfter {
		fmt.Printf("  #%d", h.PolygonID)
	}

	fmt.Printf("\n\nSmall holes (before): %d, attributed to a sink: %d, unassigned: %d\n",
		len(stats.SmallBefore), len(stats.Captures), len(stats.Unassigned))
	if len(stats.Captures) > 0 {
		fmt.Printf("Capture distance (nm): mean %.3f, median %.3f, min %.3f, max %.3f\n",
			stats.MeanCaptureDistanceNm, stats.MedianCaptureDistanceNm,
			stats.MinCaptureDistanceNm, stats.MaxCaptureDistanceNm)
		fmt.Printf("Total captured area:   %.3f nm^2\n", stats.TotalCapturedAreaNm2)
	}
}

// buildSession wraps the batch result in a PairingSession so it can be
// exported. Batch pairings are confirmed (the codec only exports confirmed
// pairings) and captures become ABSORBED fates.
func buildSession(before, after *annotation.Panel, cfg config.Config,
	center geometry.Point2D, size geometry.Size, scale float64, stats hole.RipeningStats) *session.PairingSession {

	sess := session.New(before.ID, after.ID)
	sess.BeforeTitle = before.Title
	sess.AfterTitle = after.Title
	sess.SinkThresholdNm2 = cfg.SinkThresholdNm2
	sess.MatchToleranceNm = cfg.MatchToleranceNm
	sess.FluencePerNm2 = cfg.FluencePerNm2
	sess.ImageCenterPx = center
	sess.ImageSizePx = size
	sess.CalibrationScale = scale

	for _, p := range stats.Pairings {
		p.Confirmed = true
		if err := sess.AddPairing(p); err != nil {
			// Matcher output cannot collide; a failure here is a bug.
			panic(err)
		}
	}
	for _, c := range stats.Captures {
		sess.SetSmallHoleFate(c.Hole, hole.FateAbsorbed, c.PairingID)
	}
	for _, h := range stats.Unassigned {
		sess.SetSmallHoleFate(h, hole.FateUnknown, "")
	}
	return sess
}
