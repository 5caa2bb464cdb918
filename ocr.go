// Package main - ocr.go
//
// This file implements text perception on top of Tesseract. Queries are
// scoped to catalog regions and return booleans plus confidence, never
// errors: an unreadable screen is a normal miss, not a failure.
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// digitConfidenceFloor discards noise detections in the chest counter.
const digitConfidenceFloor = 0.15

// TextDetection is one recognized word with its confidence in [0, 1].
type TextDetection struct {
	Text       string
	Confidence float64
}

// TextReader produces word detections for a frame crop.
type TextReader interface {
	Detect(img image.Image) ([]TextDetection, error)
}

// TesseractReader runs gosseract with lazy client construction. The client
// is not safe for concurrent use, so calls are serialized.
type TesseractReader struct {
	mu         sync.Mutex
	client     *gosseract.Client
	languages  []string
	whitelist  string
	preprocess func(image.Image) image.Image
}

// NewWordReader builds the general text reader.
func NewWordReader(languages []string) *TesseractReader {
	return &TesseractReader{languages: languages}
}

// NewDigitReader builds the counter reader: digit whitelist plus the
// upscale/binarize preprocessing small game numerals need.
func NewDigitReader(languages []string) *TesseractReader {
	return &TesseractReader{
		languages:  languages,
		whitelist:  "0123456789.",
		preprocess: preprocessDigits,
	}
}

func (t *TesseractReader) Detect(img image.Image) ([]TextDetection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		c := gosseract.NewClient()
		if len(t.languages) > 0 {
			if err := c.SetLanguage(t.languages...); err != nil {
				c.Close()
				return nil, fmt.Errorf("set languages: %w", err)
			}
		}
		if t.whitelist != "" {
			if err := c.SetWhitelist(t.whitelist); err != nil {
				c.Close()
				return nil, fmt.Errorf("set whitelist: %w", err)
			}
		}
		t.client = c
	}
	if t.preprocess != nil {
		img = t.preprocess(img)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	out := make([]TextDetection, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		out = append(out, TextDetection{Text: word, Confidence: b.Confidence / 100})
	}
	return out, nil
}

// Close releases the Tesseract client.
func (t *TesseractReader) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// OCR answers the text questions the workflows ask.
type OCR struct {
	words  TextReader
	digits TextReader
	cfg    *Config
}

func NewOCR(words, digits TextReader, cfg *Config) *OCR {
	return &OCR{words: words, digits: digits, cfg: cfg}
}

func (o *OCR) logf(format string, args ...interface{}) {
	if o.cfg != nil {
		o.cfg.Log(format, args...)
	}
}

// CheckText reports whether any candidate occurs in the frame (or in the
// given zone of it) and the mean confidence over all matches. Matching is
// case-insensitive substring against each detected word; a match counts
// only at or above threshold. A nil frame or a degenerate zone crop is a
// miss with zero confidence.
func (o *OCR) CheckText(img image.Image, candidates []string, zone *Region, threshold float64) (bool, float64) {
	if img == nil || len(candidates) == 0 {
		return false, 0
	}
	if zone != nil {
		cropped, ok := cropImage(img, *zone)
		if !ok {
			return false, 0
		}
		img = cropped
	}
	dets, err := o.words.Detect(img)
	if err != nil {
		o.logf("ocr: text query failed: %v", err)
		return false, 0
	}
	var matches int
	var total float64
	for _, det := range dets {
		lower := strings.ToLower(det.Text)
		for _, cand := range candidates {
			if strings.Contains(lower, strings.ToLower(cand)) && det.Confidence >= threshold {
				matches++
				total += det.Confidence
			}
		}
	}
	if matches == 0 {
		return false, 0
	}
	return true, total / float64(matches)
}

// ReadDigits extracts numeric strings from the frame. Detections are
// stripped to digits and periods and kept above the confidence floor. A
// recognized lone zero wins outright; an empty result reads as ["1"], so an
// unreadable counter is treated as one chest rather than none.
func (o *OCR) ReadDigits(img image.Image) []string {
	if img == nil {
		return []string{"1"}
	}
	dets, err := o.digits.Detect(img)
	if err != nil {
		o.logf("ocr: digit query failed: %v", err)
		return []string{"1"}
	}
	var out []string
	for _, det := range dets {
		var b strings.Builder
		for _, r := range det.Text {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		cleaned := b.String()
		if cleaned != "" && det.Confidence > digitConfidenceFloor {
			out = append(out, cleaned)
		}
	}
	for _, v := range out {
		if v == "0" {
			return []string{"0"}
		}
	}
	if len(out) == 0 {
		return []string{"1"}
	}
	return out
}
