// Package main - cv.go
//
// This file implements template and color classification of UI state using
// OpenCV: toggle checkboxes, the power delta indicator, the auto-skill glow,
// and the incorrect-equip warning. Misses are booleans; only template
// loading can fail.
package main

import (
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

const (
	equipWarningThreshold = 0.45
	templateScaleFactor   = 0.4
	glowBrightnessFloor   = 180
	glowPixelShare        = 0.1
)

// CV holds the loaded template set. Mats are owned by the struct and
// released by Close.
type CV struct {
	autosellOn   gocv.Mat
	autosellOff  gocv.Mat
	autoSkillOn  gocv.Mat
	autoSkillOff gocv.Mat
	rewardsOn    gocv.Mat
	rewardsOff   gocv.Mat
	equipWarning gocv.Mat
	cfg          *Config
}

// NewCV loads the classifier templates from dir. Template files are found
// by name substring with png/jpg/jpeg extensions anywhere under dir; every
// template must resolve or construction fails.
func NewCV(dir string, cfg *Config) (*CV, error) {
	names := []string{
		"true_autosell_set",
		"false_autosell_set",
		"true_auto_skill_button",
		"false_auto_skill_button",
		"true_task_action",
		"false_task_action",
		"incorrect_equip_choice",
	}
	mats := make(map[string]gocv.Mat, len(names))
	release := func() {
		for _, m := range mats {
			m.Close()
		}
	}
	for _, name := range names {
		path, err := findTemplate(dir, name)
		if err != nil {
			release()
			return nil, err
		}
		m := gocv.IMRead(path, gocv.IMReadColor)
		if m.Empty() {
			release()
			return nil, fmt.Errorf("template %q: unreadable image %s", name, path)
		}
		mats[name] = m
	}
	return &CV{
		autosellOn:   mats["true_autosell_set"],
		autosellOff:  mats["false_autosell_set"],
		autoSkillOn:  mats["true_auto_skill_button"],
		autoSkillOff: mats["false_auto_skill_button"],
		rewardsOn:    mats["true_task_action"],
		rewardsOff:   mats["false_task_action"],
		equipWarning: mats["incorrect_equip_choice"],
		cfg:          cfg,
	}, nil
}

func findTemplate(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || found != "" {
			return err
		}
		base := strings.ToLower(d.Name())
		ext := filepath.Ext(base)
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			return nil
		}
		if strings.Contains(base, name) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan templates in %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("template %q not found under %s", name, dir)
	}
	return found, nil
}

// Close releases all template Mats.
func (c *CV) Close() {
	for _, m := range []*gocv.Mat{
		&c.autosellOn, &c.autosellOff,
		&c.autoSkillOn, &c.autoSkillOff,
		&c.rewardsOn, &c.rewardsOff,
		&c.equipWarning,
	} {
		m.Close()
	}
}

func (c *CV) logf(format string, args ...interface{}) {
	if c.cfg != nil {
		c.cfg.Log(format, args...)
	}
}

// imageToMat converts a frame crop to a 3-channel Mat. The caller owns the
// result.
func imageToMat(img image.Image) (gocv.Mat, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return gocv.ImageToMatRGB(rgba)
}

// scaledSize computes the downscaled template size used when a crop is
// smaller than its template. ok is false when no scaling applies or the
// scaled template still would not fit.
func scaledSize(imgW, imgH, tmplW, tmplH int, factor float64) (int, int, bool) {
	if imgH >= tmplH && imgW >= tmplW {
		return tmplW, tmplH, false
	}
	scale := float64(imgH) / float64(tmplH)
	if w := float64(imgW) / float64(tmplW); w < scale {
		scale = w
	}
	scale *= factor
	newW := int(float64(tmplW) * scale)
	newH := int(float64(tmplH) * scale)
	if newW >= imgW || newH >= imgH || newW <= 0 || newH <= 0 {
		return tmplW, tmplH, false
	}
	return newW, newH, true
}

// fitTemplate returns tmpl downscaled to fit img when needed. The second
// result tells the caller to Close the returned Mat.
func fitTemplate(img, tmpl gocv.Mat) (gocv.Mat, bool) {
	w, h, ok := scaledSize(img.Cols(), img.Rows(), tmpl.Cols(), tmpl.Rows(), templateScaleFactor)
	if !ok {
		return tmpl, false
	}
	scaled := gocv.NewMat()
	gocv.Resize(tmpl, &scaled, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
	return scaled, true
}

// matchMax runs normalized cross-coefficient template matching and returns
// the best score, or -1 when the template does not fit the image.
func matchMax(img, tmpl gocv.Mat) float32 {
	if img.Rows() < tmpl.Rows() || img.Cols() < tmpl.Cols() {
		return -1
	}
	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(img, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return maxVal
}

// AutosellChecked reports whether the autosell checkbox crop looks checked,
// by comparing best matches against the checked and unchecked templates.
func (c *CV) AutosellChecked(img image.Image) bool {
	mat, err := imageToMat(img)
	if err != nil {
		c.logf("cv: autosell crop: %v", err)
		return false
	}
	defer mat.Close()
	trueVal := matchMax(mat, c.autosellOn)
	falseVal := matchMax(mat, c.autosellOff)
	c.logf("cv: autosell match true=%.3f false=%.3f", trueVal, falseVal)
	return trueVal > falseVal
}

// PowerIncrease reports whether the power delta indicator is green rather
// than red. An indicator with no green or red pixels reads as a decrease.
func (c *CV) PowerIncrease(img image.Image) bool {
	mat, err := imageToMat(img)
	if err != nil {
		c.logf("cv: power crop: %v", err)
		return false
	}
	defer mat.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	maskGreen := gocv.NewMat()
	defer maskGreen.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(40, 50, 50, 0), gocv.NewScalar(80, 255, 255, 0), &maskGreen)

	maskRed1 := gocv.NewMat()
	defer maskRed1.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, 50, 50, 0), gocv.NewScalar(10, 255, 255, 0), &maskRed1)

	maskRed2 := gocv.NewMat()
	defer maskRed2.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(170, 50, 50, 0), gocv.NewScalar(180, 255, 255, 0), &maskRed2)

	maskRed := gocv.NewMat()
	defer maskRed.Close()
	gocv.BitwiseOr(maskRed1, maskRed2, &maskRed)

	green := gocv.CountNonZero(maskGreen)
	red := gocv.CountNonZero(maskRed)
	c.logf("cv: power pixels green=%d red=%d", green, red)
	if green+red == 0 {
		return false
	}
	return green > red
}

// AutoSkillEnabled reports whether the auto-skill toggle crop looks
// enabled. The off-template winning marks the button as active, which is
// then confirmed by the glow test: enough pixels above the brightness
// floor.
func (c *CV) AutoSkillEnabled(img image.Image) bool {
	mat, err := imageToMat(img)
	if err != nil {
		c.logf("cv: auto-skill crop: %v", err)
		return false
	}
	defer mat.Close()

	onTmpl, closeOn := fitTemplate(mat, c.autoSkillOn)
	if closeOn {
		defer onTmpl.Close()
	}
	offTmpl, closeOff := fitTemplate(mat, c.autoSkillOff)
	if closeOff {
		defer offTmpl.Close()
	}
	trueVal := matchMax(mat, onTmpl)
	falseVal := matchMax(mat, offTmpl)
	c.logf("cv: auto-skill match true=%.3f false=%.3f", trueVal, falseVal)
	if falseVal < trueVal {
		return false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, glowBrightnessFloor, 255, gocv.ThresholdBinary)
	pixels := gocv.CountNonZero(bright)
	size := gray.Rows() * gray.Cols()
	hasGlow := float64(pixels) > float64(size)*glowPixelShare
	c.logf("cv: auto-skill glow pixels=%d of %d has_glow=%v", pixels, size, hasGlow)
	return hasGlow
}

// DailyRewardBadge reports whether the daily reward row carries an
// unclaimed badge. The classifier is kept for parity with the reward flow
// but is not yet reliable enough to gate claiming on.
func (c *CV) DailyRewardBadge(img image.Image) bool {
	mat, err := imageToMat(img)
	if err != nil {
		c.logf("cv: reward crop: %v", err)
		return false
	}
	defer mat.Close()

	onTmpl, closeOn := fitTemplate(mat, c.rewardsOn)
	if closeOn {
		defer onTmpl.Close()
	}
	offTmpl, closeOff := fitTemplate(mat, c.rewardsOff)
	if closeOff {
		defer offTmpl.Close()
	}
	trueVal := matchMax(mat, onTmpl)
	falseVal := matchMax(mat, offTmpl)
	c.logf("cv: reward badge match true=%.3f false=%.3f", trueVal, falseVal)
	return trueVal > falseVal
}

// IncorrectEquipChoice reports whether the warning about equipping or
// selling the wrong item is on screen.
func (c *CV) IncorrectEquipChoice(img image.Image) bool {
	mat, err := imageToMat(img)
	if err != nil {
		c.logf("cv: warning crop: %v", err)
		return false
	}
	defer mat.Close()

	tmpl, closeTmpl := fitTemplate(mat, c.equipWarning)
	if closeTmpl {
		defer tmpl.Close()
	}
	val := matchMax(mat, tmpl)
	c.logf("cv: equip warning match %.3f", val)
	return val > equipWarningThreshold
}

// preprocessDigits upsizes and binarizes a counter crop so Tesseract can
// read small game numerals. On any conversion failure the original crop is
// returned unchanged.
func preprocessDigits(img image.Image) image.Image {
	mat, err := imageToMat(img)
	if err != nil {
		return img
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Point{}, 1.5, 1.5, gocv.InterpolationCubic)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.AdaptiveThreshold(gray, &bin, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoising(bin, &denoised)

	out, err := denoised.ToImage()
	if err != nil {
		return img
	}
	return out
}
