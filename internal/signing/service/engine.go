// Package service renders signature marks and the compliance footer onto PDFs.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

const (
	minMarkFontSize    = 6
	maxMarkFontSize    = 48
	captionFontSize    = 6
	minCaptionFontSize = 3
	captionStrip       = captionFontSize + 2
	footerFontSize     = 6
	footerLineHeight   = footerFontSize + 2
	footerSlotHeight   = 2 * footerLineHeight
	footerPadding      = 4.0
	helveticaAvgWidth  = 0.55
	footerSideMargin   = 12.0
	defaultFooterBand  = 24.0
	defaultApplication = "esign"
)

// Rendering errors.
var (
	ErrNoFieldAssigned       = apperrors.Wrap(apperrors.ErrInvalidInput, "no signature field is assigned to the signer")
	ErrInvalidSignatureImage = apperrors.Wrap(apperrors.ErrInvalidInput, "signature image is not a valid PNG or JPEG")
	ErrPageNotFound          = apperrors.Wrap(apperrors.ErrInvalidInput, "placement references a page outside the document")
	ErrEmptyMark             = apperrors.Wrap(apperrors.ErrInvalidInput, "mark has neither text nor image")
	ErrRender                = apperrors.New("failed to render signed document")
)

var disableConfigDir sync.Once

// Rect is a box on a 1-based page in page fractions, origin bottom-left.
type Rect struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Mark is the signer's mark: typed text or a PNG/JPEG image.
type Mark struct {
	Text  string
	Image []byte
}

// FieldValue is a DATE, TEXT or CHECKBOX value drawn into its field.
type FieldValue struct {
	Rect  Rect
	Value string
}

// FooterInputs feed the compliance footer and its fingerprint. Step is the 1-based
// position of this signing among all signing steps of the document and selects the
// footer slot, so earlier footers stay readable.
type FooterInputs struct {
	Step         int
	DocumentID   string
	SignerEmail  string
	SignerName   string
	SignedAt     time.Time
	Jurisdiction string
}

// RenderRequest describes one signing step. ContentPages is the page count of the
// original document; pages after it only carry footers. Zero means every page of
// the base is content.
type RenderRequest struct {
	ContentPages         int
	Mark                 Mark
	Placements           []Rect
	FieldValues          []FieldValue
	SuppressMarkMetadata bool
	Footer               FooterInputs
}

// Artifact is the final serialized document. Hash is the SHA-256 of Bytes.
type Artifact struct {
	Bytes     []byte
	Hash      string
	PageCount int
}

// Engine stamps marks, field values and the compliance footer with pdfcpu.
type Engine struct {
	conf            *model.Configuration
	footerBand      float64
	applicationName string
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithFooterBand sets the height in points of the footer band on the last page.
func WithFooterBand(points float64) EngineOption {
	return func(e *Engine) {
		if points > 0 {
			e.footerBand = points
		}
	}
}

// WithApplicationName sets the product name printed in the footer.
func WithApplicationName(name string) EngineOption {
	return func(e *Engine) {
		if name != "" {
			e.applicationName = name
		}
	}
}

// NewEngine creates a rendering engine with relaxed PDF validation.
func NewEngine(opts ...EngineOption) *Engine {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	e := &Engine{
		conf:            conf,
		footerBand:      defaultFooterBand,
		applicationName: defaultApplication,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FooterBand returns the reserved footer height in points.
func (e *Engine) FooterBand() float64 {
	return e.footerBand
}

// FooterSlots returns how many footers fit in the band of the last content page.
// Later steps go to footer pages appended after the content.
func (e *Engine) FooterSlots() int {
	return max(int((e.footerBand-footerPadding)/footerSlotHeight), 0)
}

// footerSlot returns the page and the baseline of the lower footer line for step.
func (e *Engine) footerSlot(step, contentPages int, size docDomain.PageSize) (int, float64) {
	step = max(step, 1)
	inBand := e.FooterSlots()
	if step <= inBand {
		return contentPages, footerPadding + float64(step-1)*footerSlotHeight
	}

	perPage := max(int((size.Height-2*footerPadding)/footerSlotHeight), 1)
	idx := step - inBand - 1
	slot := idx % perPage
	return contentPages + idx/perPage + 1, size.Height - footerPadding - float64(slot+1)*footerSlotHeight
}

// config returns a per-call copy; pdfcpu records the running command on it.
func (e *Engine) config() *model.Configuration {
	conf := *e.conf
	return &conf
}

// PageSizes returns the size of every page of a PDF.
func (e *Engine) PageSizes(pdf []byte) ([]docDomain.PageSize, error) {
	dims, err := api.PageDims(bytes.NewReader(pdf), e.config())
	if err != nil {
		return nil, apperrors.Join(ErrRender, err)
	}

	sizes := make([]docDomain.PageSize, 0, len(dims))
	for _, d := range dims {
		sizes = append(sizes, docDomain.PageSize{Width: d.Width, Height: d.Height})
	}
	return sizes, nil
}

// Sign renders the mark into every placement, draws the field values and the
// compliance footer on top of base, and hashes the exact bytes it returns. Base must
// be the previous complete signed version, or the original for the first step.
// Marks and captions stay inside their boxes; the footer takes its own slot.
func (e *Engine) Sign(ctx context.Context, base []byte, req RenderRequest) (*Artifact, error) {
	if len(req.Placements) == 0 {
		return nil, ErrNoFieldAssigned
	}
	if err := validateMark(req.Mark); err != nil {
		return nil, err
	}

	pages, err := e.PageSizes(base)
	if err != nil {
		return nil, err
	}
	contentPages := req.ContentPages
	if contentPages <= 0 || contentPages > len(pages) {
		contentPages = len(pages)
	}
	for _, r := range req.Placements {
		if r.Page < 1 || r.Page > contentPages {
			return nil, apperrors.Wrap(ErrPageNotFound, fmt.Sprintf("page %d", r.Page))
		}
	}
	for _, fv := range req.FieldValues {
		if fv.Rect.Page < 1 || fv.Rect.Page > contentPages {
			return nil, apperrors.Wrap(ErrPageNotFound, fmt.Sprintf("page %d", fv.Rect.Page))
		}
	}

	signedAt := req.Footer.SignedAt.UTC().Truncate(time.Second)
	current := base

	for _, r := range req.Placements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		box := toPoints(r, pages[r.Page-1])
		markBox := box
		caption, captionSize := "", 0
		if !req.SuppressMarkMetadata {
			caption = fmt.Sprintf("%s · %s", req.Footer.SignerName, signedAt.Format(time.RFC3339))
			markBox, captionSize = captionLayout(caption, box)
		}

		if current, err = e.stampMark(current, r.Page, markBox, req.Mark); err != nil {
			return nil, err
		}
		if captionSize > 0 {
			if current, err = e.stampText(current, r.Page, caption, captionSize, box.X+1, box.Y+1); err != nil {
				return nil, err
			}
		}
	}

	for _, fv := range req.FieldValues {
		if strings.TrimSpace(fv.Value) == "" {
			continue
		}
		box := toPoints(fv.Rect, pages[fv.Rect.Page-1])
		size := fitFontSize(fv.Value, box)
		if current, err = e.stampText(current, fv.Rect.Page, fv.Value, size, box.X+1, box.Y+1); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	footer := req.Footer
	footer.SignedAt = signedAt
	pageCount := len(pages)
	if current, pageCount, err = e.appendFooter(current, pageCount, contentPages, pages[contentPages-1], footer); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(current)
	return &Artifact{
		Bytes:     current,
		Hash:      hex.EncodeToString(sum[:]),
		PageCount: pageCount,
	}, nil
}

// Fingerprint is the first 16 upper-case hex digits of
// SHA-256(documentID | email | RFC3339 timestamp).
func Fingerprint(documentID, email string, signedAt time.Time) string {
	sum := sha256.Sum256([]byte(documentID + "|" + email + "|" + signedAt.UTC().Format(time.RFC3339)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:16]
}

// ComplianceStatement returns the legal statement for a jurisdiction code.
func ComplianceStatement(jurisdiction string) string {
	switch strings.ToLower(jurisdiction) {
	case "us":
		return "Signed electronically under the U.S. ESIGN Act and UETA."
	case "eu":
		return "Electronic signature under Regulation (EU) No 910/2014 (eIDAS)."
	case "uk":
		return "Electronic signature under the UK Electronic Communications Act 2000 and UK eIDAS."
	case "in":
		return "Electronic signature under the Information Technology Act, 2000 (India)."
	default:
		return "Signed electronically. Any change to this document invalidates its recorded hash."
	}
}

// FooterText returns the two footer lines stamped on the last page.
func (e *Engine) FooterText(in FooterInputs) (string, string) {
	ts := in.SignedAt.UTC().Format(time.RFC3339)
	first := fmt.Sprintf("Electronically signed by %s | Fingerprint %s | %s",
		in.SignerEmail, Fingerprint(in.DocumentID, in.SignerEmail, in.SignedAt), ts)
	second := fmt.Sprintf("%s | %s", ComplianceStatement(in.Jurisdiction), e.applicationName)
	return first, second
}

// MarkFontSize is clamp(0.6 x heightPt, 6, 48).
func MarkFontSize(heightPt float64) int {
	size := int(math.Round(0.6 * heightPt))
	return min(max(size, minMarkFontSize), maxMarkFontSize)
}

type pointBox struct {
	X, Y, Width, Height float64
}

func toPoints(r Rect, page docDomain.PageSize) pointBox {
	return pointBox{
		X:      r.X * page.Width,
		Y:      r.Y * page.Height,
		Width:  r.Width * page.Width,
		Height: r.Height * page.Height,
	}
}

func fitFontSize(text string, box pointBox) int {
	size := MarkFontSize(box.Height)
	if n := len([]rune(text)); n > 0 {
		byWidth := int(box.Width / (float64(n) * helveticaAvgWidth))
		size = min(size, max(byWidth, minMarkFontSize))
	}
	return size
}

func validateMark(m Mark) error {
	if len(m.Image) > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(m.Image))
		if err != nil || cfg.Width == 0 || cfg.Height == 0 {
			return ErrInvalidSignatureImage
		}
		return nil
	}
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyMark
	}
	return nil
}

func (e *Engine) stampMark(pdf []byte, page int, box pointBox, mark Mark) ([]byte, error) {
	if len(mark.Image) == 0 {
		return e.stampText(pdf, page, mark.Text, fitFontSize(mark.Text, box), box.X+1, box.Y+box.Height*0.2)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(mark.Image))
	if err != nil {
		return nil, ErrInvalidSignatureImage
	}
	scale := math.Min(box.Width/float64(cfg.Width), box.Height/float64(cfg.Height))

	desc := fmt.Sprintf("position:bl, offset:%.2f %.2f, scalefactor:%.4f abs, rotation:0, opacity:1",
		box.X, box.Y, scale)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(mark.Image), desc, true, false, types.POINTS)
	if err != nil {
		return nil, ErrInvalidSignatureImage
	}
	return e.apply(pdf, page, wm)
}

func (e *Engine) stampText(pdf []byte, page int, text string, size int, x, y float64) ([]byte, error) {
	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1",
		size, x, y,
	)
	wm, err := api.TextWatermark(sanitizeStampText(text), desc, true, false, types.POINTS)
	if err != nil {
		return nil, apperrors.Join(ErrRender, err)
	}
	return e.apply(pdf, page, wm)
}

// captionLayout splits box into the mark area and a caption strip along its bottom
// edge. A zero size means the box cannot hold the caption and the mark keeps it all.
func captionLayout(caption string, box pointBox) (pointBox, int) {
	if box.Height < 3*captionStrip {
		return box, 0
	}
	size := captionFontSize
	if n := len([]rune(caption)); n > 0 {
		size = min(size, int((box.Width-2)/(float64(n)*helveticaAvgWidth)))
	}
	if size < minCaptionFontSize {
		return box, 0
	}

	mark := box
	mark.Y += captionStrip
	mark.Height -= captionStrip
	return mark, size
}

// appendFooter stamps the two footer lines into the slot of in.Step, appending blank
// footer pages sized like the last content page when the slot lies past the end.
func (e *Engine) appendFooter(
	pdf []byte,
	pageCount, contentPages int,
	size docDomain.PageSize,
	in FooterInputs,
) ([]byte, int, error) {
	page, y := e.footerSlot(in.Step, contentPages, size)
	for pageCount < page {
		var out bytes.Buffer
		err := api.InsertPages(bytes.NewReader(pdf), &out, []string{strconv.Itoa(pageCount)}, false, nil, e.config())
		if err != nil {
			return nil, 0, apperrors.Join(ErrRender, err)
		}
		pdf = out.Bytes()
		pageCount++
	}

	first, second := e.FooterText(in)

	fontSize := footerFontSize
	longest := max(len(first), len(second))
	if fit := int((size.Width - 2*footerSideMargin) / (float64(longest) * helveticaAvgWidth)); fit < fontSize {
		fontSize = max(fit, 4)
	}

	out, err := e.stampText(pdf, page, first, fontSize, footerSideMargin, y+footerLineHeight)
	if err != nil {
		return nil, 0, err
	}
	if out, err = e.stampText(out, page, second, fontSize, footerSideMargin, y); err != nil {
		return nil, 0, err
	}
	return out, pageCount, nil
}

func (e *Engine) apply(pdf []byte, page int, wm *model.Watermark) ([]byte, error) {
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdf), &out, []string{strconv.Itoa(page)}, wm, e.config()); err != nil {
		return nil, apperrors.Join(ErrRender, err)
	}
	return out.Bytes(), nil
}

// sanitizeStampText keeps stamp text on a single line.
func sanitizeStampText(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}
