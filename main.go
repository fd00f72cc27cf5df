package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	json "github.com/KevinWang15/go-json5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bob-anderson-ok/otfsim/otf"
	"github.com/bob-anderson-ok/otfsim/profile"
	"github.com/bob-anderson-ok/otfsim/psf"
	"github.com/bob-anderson-ok/otfsim/simulate"
)

// !!!!! This MUST match the app name given in the run configuration !!!!!
const version = "1_0_0"

// Output files, written to the working directory
const (
	spectralWeightsPlotFile = "spectral_weights.png"
	mtfPlotFile             = "mtf_slice.png"
	kernelImageFile         = "kernel8bit.png"
	kernelProfileFile       = "kernel_profile.png"
	simulatedImageFile      = "simulatedImage8bit.png"
	simulatedDataFile       = "simulatedImage16bit.png"
)

// Scenario is the validated content of the parameter file.
type Scenario struct {
	ShowInput        bool
	Debug            bool
	LogJSON          bool
	WindowSizePixels int
	Title            string

	GridSizePoints       int
	GridSpanOverCutoff   float64 // grid half-width in units of the shortest-wavelength cutoff
	MTFSliceAngleDegrees float64

	ObservationWavelengthNm float64
	SpectralWeights         [][2]float64 // [wavelength_nm, weight]
	PathToSpectralWeights   string

	Sensor             otf.Sensor
	IntegrationTimeSec float64
	Atmosphere         otf.Scenario
	SlantRangeM        float64
	GroundRangeM       float64
	FocusErrorM        float64 // image-domain focus error
	FocusRangeM        float64 // range the optics are focused at; 0 means the target range

	PathToRadialTable string
	PathToXYTable     string
	PathTo2DTable     string
	DisabledSources   []string

	ReferenceGiven       bool
	PathToReferenceImage string
	ReferenceGsdM        float64

	CropPolicy psf.CropPolicy
	Padding    psf.PaddingMode
}

func initLogger(scn *Scenario) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if scn.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if scn.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func main() {

	programStart := time.Now()

	args := os.Args

	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.\n\tUsage: otfsim <parameter-file>")
		os.Exit(1)
	}

	path := args[1]

	// Read the Json5 (or Json) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read input file %q failed: %w\n", path, err))
		os.Exit(2)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	err = json.Unmarshal(data, &jsonTable)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w\n", path, err))
		os.Exit(3)
	}

	var scn Scenario
	msg, ok := validateJsonFileAndFillScenario(jsonTable, &scn)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	// Check for user wanting printout of complete jsonTable
	if scn.ShowInput {
		fmt.Printf("%s", "\nPrintout of  complete jsonTable contents...\n")
		fmt.Println(string(data))
	}

	log := initLogger(&scn)
	log.Infof("Version %s", version)

	spectrum, table, err := loadSpectrum(&scn)
	if err != nil {
		log.WithError(err).Error("spectral weights are unusable")
		os.Exit(5)
	}
	if len(table) > 1 {
		source := scn.PathToSpectralWeights
		if source == "" {
			source = path
		}
		if err := MakeSpectralWeightsPlot(table, source, spectralWeightsPlotFile); err != nil {
			log.WithError(err).Warn("could not plot spectral weights")
		}
	}

	slantRange := scn.SlantRangeM
	if slantRange == 0 {
		slantRange = otf.SlantRange(0, scn.Atmosphere.Altitude, scn.GroundRangeM)
	}

	// The grid must resolve the aperture cutoff at the shortest wavelength
	shortest := spectrum.Wavelengths[0]
	for _, wl := range spectrum.Wavelengths {
		shortest = math.Min(shortest, wl)
	}
	cutoff := scn.Sensor.Cutoff(shortest)
	g, err := otf.NewFrequencyGridToCutoff(scn.GridSizePoints, scn.GridSpanOverCutoff*cutoff)
	if err != nil {
		log.WithError(err).Error("could not build the frequency grid")
		os.Exit(6)
	}
	log.WithFields(logrus.Fields{
		"wavelengths": len(spectrum.Wavelengths),
		"grid":        scn.GridSizePoints,
		"spacing":     g.Spacing,
		"slant_range": slantRange,
		"ifov":        scn.Sensor.IFOV(),
	}).Info("frequency grid ready")

	sources, err := buildSources(&scn, slantRange)
	if err != nil {
		log.WithError(err).Error("could not build the degradation sources")
		os.Exit(7)
	}

	start := time.Now()
	asm := otf.NewAssembler(spectrum, sources...)
	asm.Logger = log
	asm.Disable(scn.DisabledSources...)
	sys, err := asm.Assemble(g)
	if err != nil {
		log.WithError(err).Error("assembly of the system response failed")
		os.Exit(8)
	}
	log.WithFields(logrus.Fields{
		"components": len(sys.Components),
		"r0_band":    sys.R0Band,
		"elapsed":    time.Since(start),
	}).Info("system response assembled")

	mtfImg, err := makeMTFPlotImage(sys, g, scn.MTFSliceAngleDegrees, 1200, 500)
	if err != nil {
		log.WithError(err).Error("could not plot the MTF slice")
		os.Exit(9)
	}
	if err := profile.SaveImageToFile(mtfPlotFile, mtfImg); err != nil {
		log.WithError(err).Errorf("writing of %q failed", mtfPlotFile)
		os.Exit(10)
	}

	// Kernel at the sensor sample spacing
	sim := simulate.New(log)
	sim.Policy = scn.CropPolicy
	sim.Padding = scn.Padding
	ifov := scn.Sensor.IFOV()
	kernel, err := psf.Synthesize(sys.System, g.Spacing, ifov, scn.CropPolicy)
	if err != nil {
		log.WithError(err).Error("kernel synthesis failed")
		os.Exit(11)
	}
	kernelView, err := writeKernelOutputs(kernel, ifov)
	if err != nil {
		log.WithError(err).Error("writing of the kernel outputs failed")
		os.Exit(12)
	}
	log.WithFields(logrus.Fields{
		"size":      len(kernel.Data),
		"energy":    kernel.EnergyFraction,
		"converged": kernel.Converged,
	}).Info("kernel at sensor sampling")

	display := image.Image(kernelView)
	if scn.ReferenceGiven {
		display, err = simulateReference(log, sim, &scn, sys, g, slantRange, cutoff)
		if err != nil {
			log.WithError(err).Error("image simulation failed")
			os.Exit(13)
		}
	}

	log.Infof("Total program run time is %s", time.Since(programStart))

	if scn.WindowSizePixels > 0 { // We have displays to make
		showWindows(&scn, display, mtfImg, len(table) > 1)
	}
}

// loadSpectrum builds the spectrum from whichever form the parameter file
// used and returns the normalized [nm, weight] table.
func loadSpectrum(scn *Scenario) (otf.Spectrum, [][2]float64, error) {
	table := scn.SpectralWeights
	switch {
	case scn.PathToSpectralWeights != "":
		data, err := os.ReadFile(scn.PathToSpectralWeights)
		if err != nil {
			return otf.Spectrum{}, nil, errors.Wrapf(err, "reading %s", scn.PathToSpectralWeights)
		}
		table, err = parseArrayFormat(data)
		if err != nil {
			return otf.Spectrum{}, nil, errors.Wrapf(err, "parsing %s", scn.PathToSpectralWeights)
		}
	case len(table) == 0:
		table = [][2]float64{{scn.ObservationWavelengthNm, 1}}
	}
	if len(table) < 1 {
		return otf.Spectrum{}, nil, errors.Errorf("the spectral weight table %q is empty", scn.PathToSpectralWeights)
	}

	spectrum := otf.Spectrum{
		Wavelengths: make([]float64, len(table)),
		Weights:     make([]float64, len(table)),
	}
	for i, pair := range table {
		spectrum.Wavelengths[i] = pair[0] * 1e-9
		spectrum.Weights[i] = pair[1]
	}
	weights, err := spectrum.NormalizedWeights()
	if err != nil {
		return otf.Spectrum{}, nil, err
	}
	normalized := make([][2]float64, len(table))
	for i := range table {
		normalized[i] = [2]float64{table[i][0], weights[i]}
	}
	spectrum.Weights = weights
	return spectrum, normalized, nil
}

// buildSources returns the common catalog plus any tabulated responses
// named in the parameter file.
func buildSources(scn *Scenario, slantRange float64) ([]otf.Source, error) {
	sources, err := otf.CommonSources(scn.Sensor, scn.Atmosphere, slantRange, scn.IntegrationTimeSec)
	if err != nil {
		return nil, err
	}
	if w := defocusRadius(scn, slantRange); w > 0 {
		sources = append(sources, otf.Defocus{WX: w, WY: w})
	}
	if scn.PathToRadialTable != "" {
		t, err := otf.LoadRadialTable(scn.PathToRadialTable)
		if err != nil {
			return nil, err
		}
		sources = append(sources, t)
	}
	if scn.PathToXYTable != "" {
		t, err := otf.LoadXYTable(scn.PathToXYTable)
		if err != nil {
			return nil, err
		}
		sources = append(sources, t)
	}
	if scn.PathTo2DTable != "" {
		t, err := otf.LoadTable2D(scn.PathTo2DTable)
		if err != nil {
			return nil, err
		}
		sources = append(sources, t)
	}
	return sources, nil
}

// defocusRadius is the 1/e defocus blur radius (rad) from the image-domain
// focus error and the object-domain focus range, added in quadrature.
func defocusRadius(scn *Scenario, slantRange float64) float64 {
	d := scn.Sensor.Diameter
	inImage := otf.ImageDomainDefocusRadius(d, scn.FocusErrorM, scn.Sensor.FocalLength)
	inObject := 0.0
	if scn.FocusRangeM > 0 {
		inObject = otf.ObjectDomainDefocusRadius(d, slantRange, scn.FocusRangeM)
	}
	return math.Hypot(inImage, inObject)
}

// writeKernelOutputs saves a square-root stretched view of the kernel and
// its row and column profiles, and returns the view.
func writeKernelOutputs(k *psf.Kernel, ifov float64) (*image.Gray, error) {
	size := len(k.Data)
	root := make([][]float64, size)
	for y, row := range k.Data {
		root[y] = make([]float64, len(row))
		for x, v := range row {
			root[y][x] = math.Sqrt(math.Max(v, 0))
		}
	}
	view, err := MatrixToGrayViewPercentile(root, 0.0, 100)
	if err != nil {
		return nil, err
	}
	if err := profile.SaveImageToFile(kernelImageFile, view); err != nil {
		return nil, err
	}

	var series []profile.Series
	for _, c := range []struct {
		name  string
		angle float64
		col   color.RGBA
	}{
		{"row", 0, color.RGBA{B: 255, A: 255}},
		{"column", 90, color.RGBA{R: 255, A: 255}},
	} {
		p, err := profile.NewPath(len(k.Data[0]), size, c.angle)
		if err != nil {
			return nil, err
		}
		p.Scale = ifov * 1e6 // µrad
		pts := profile.Extract(k.Data, p)
		profile.Normalize(pts)
		name := c.name
		if w, err := profile.FWHM(pts); err == nil {
			name = fmt.Sprintf("%s (FWHM %.2f µrad)", c.name, w)
		}
		series = append(series, profile.Series{Name: name, Points: pts, Color: c.col, Dashed: c.angle != 0})
	}
	err = profile.SaveProfilePlot(kernelProfileFile, series, profile.PlotOptions{
		Title:  fmt.Sprintf("Kernel at sensor sampling (energy fraction %.3f)", k.EnergyFraction),
		XLabel: "angle from center (µrad)",
		YLabel: "normalized value",
		YMin:   -0.05,
		YMax:   1.05,
	}, 1200, 500)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// simulateReference blurs and resamples the reference image and writes the
// display and data PNGs. It returns the display image.
func simulateReference(log logrus.FieldLogger, sim *simulate.Simulator, scn *Scenario,
	sys *otf.SystemOTF, g *otf.FrequencyGrid, slantRange, cutoff float64) (image.Image, error) {

	img, err := profile.LoadImageFromFile(scn.PathToReferenceImage)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":  scn.PathToReferenceImage,
		"model": ColorModelString(img.ColorModel()),
		"cols":  img.Bounds().Dx(),
		"rows":  img.Bounds().Dy(),
	}).Info("reference image loaded")

	if limit := simulate.SamplingLimit(slantRange, cutoff); scn.ReferenceGsdM > limit {
		log.WithFields(logrus.Fields{
			"gsd":   scn.ReferenceGsdM,
			"limit": limit,
		}).Warn("reference image is too coarse to sample the optics adequately")
	}

	start := time.Now()
	bands := ImageToBands(img)
	results, err := sim.ApplyOTFToBands(bands, scn.ReferenceGsdM, slantRange, sys.System, g.Spacing, scn.Sensor.IFOV())
	if err != nil {
		return nil, err
	}
	out := make([][][]float64, len(results))
	for i, r := range results {
		out[i] = r.Image
	}
	log.WithFields(logrus.Fields{
		"bands":   len(out),
		"rows":    len(out[0]),
		"cols":    len(out[0][0]),
		"elapsed": time.Since(start),
	}).Info("image simulated")

	var view image.Image
	if len(out) == 3 {
		view, err = BandsToRGBViewPercentile(out, 0.5, 99.5)
	} else {
		view, err = MatrixToGrayViewPercentile(out[0], 0.5, 99.5)
	}
	if err != nil {
		return nil, err
	}
	if err := profile.SaveImageToFile(simulatedImageFile, view); err != nil {
		return nil, err
	}

	// Make the scientific (well-defined scaling) version of the first band
	scale := Gray16Scale(out[0])
	data, err := MatrixToGray16Data(out[0], scale)
	if err != nil {
		return nil, err
	}
	if err := profile.SaveImageToFile(simulatedDataFile, data); err != nil {
		return nil, err
	}
	log.WithField("scale", scale).Infof("%s holds band 0 as value*scale", simulatedDataFile)
	return view, nil
}

func showWindows(scn *Scenario, display, mtfImg image.Image, spectralPlot bool) {
	size := scn.WindowSizePixels

	// We supply an ID (hopefully unique) because we may need to use the preferences API
	myApp := app.NewWithID("com.gmail.ok.anderson.bob.otfsim")

	winTitle := scn.Title
	if spectralPlot {
		winTitle += " (spectrally weighted system response)"
	}
	w := myApp.NewWindow(winTitle)
	w.SetPadded(false)
	w.CenterOnScreen()

	img := canvas.NewImageFromImage(display)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	w.Resize(fyne.Size{Height: float32(size), Width: float32(size)})
	w.SetContent(container.NewStack(img))

	plotImg := canvas.NewImageFromImage(mtfImg)
	plotImg.FillMode = canvas.ImageFillContain
	plotImg.SetMinSize(fyne.NewSize(1200, 500))

	w2 := myApp.NewWindow("System MTF")
	w2.SetContent(container.NewCenter(plotImg))
	w2.Resize(fyne.NewSize(950, 550))
	w2.Show()

	kernelImg := canvas.NewImageFromFile(kernelProfileFile)
	kernelImg.FillMode = canvas.ImageFillContain
	kernelImg.SetMinSize(fyne.NewSize(1200, 500))

	w3 := myApp.NewWindow("Kernel profile")
	w3.SetContent(container.NewCenter(kernelImg))
	w3.Resize(fyne.NewSize(950, 550))
	w3.Show()

	if spectralPlot {
		spectralImg := canvas.NewImageFromFile(spectralWeightsPlotFile)
		spectralImg.FillMode = canvas.ImageFillContain
		spectralImg.SetMinSize(fyne.NewSize(1200, 500))

		w4 := myApp.NewWindow("Spectral weights")
		w4.SetContent(container.NewCenter(spectralImg))
		w4.Resize(fyne.NewSize(950, 550))
		w4.Show()
	}

	w.ShowAndRun()
}
