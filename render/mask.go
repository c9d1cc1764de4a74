package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
)

// KeyPoint is a keypoint mapped onto the displayed canvas.
type KeyPoint struct {
	Part  detection.BodyPart
	Point common.CanvasPoint
	Score float32
}

type connection [2]detection.BodyPart

var (
	lowerBodyConnections = []connection{
		{detection.LeftHip, detection.RightHip},
		{detection.LeftHip, detection.LeftKnee},
		{detection.RightHip, detection.RightKnee},
		{detection.LeftKnee, detection.RightKnee},
	}

	bodyConnections = []connection{
		{detection.LeftShoulder, detection.RightShoulder},
		{detection.LeftShoulder, detection.LeftElbow},
		{detection.RightShoulder, detection.RightElbow},
		{detection.LeftElbow, detection.LeftWrist},
		{detection.RightElbow, detection.RightWrist},

		{detection.LeftShoulder, detection.LeftHip},
		{detection.RightShoulder, detection.RightHip},
		{detection.LeftShoulder, detection.RightHip},
		{detection.RightShoulder, detection.LeftHip},

		{detection.LeftHip, detection.RightHip},
		{detection.LeftHip, detection.LeftKnee},
		{detection.RightHip, detection.RightKnee},
		{detection.LeftKnee, detection.RightKnee},
		{detection.LeftKnee, detection.LeftAnkle},
		{detection.RightKnee, detection.RightAnkle},
	}

	// skeletonConnections is the debug overlay; eye-eye and eye-ear links are
	// left out.
	skeletonConnections = []connection{
		{detection.Nose, detection.LeftEye},
		{detection.Nose, detection.RightEye},
		{detection.Nose, detection.LeftShoulder},
		{detection.Nose, detection.RightShoulder},
		{detection.LeftEar, detection.LeftShoulder},
		{detection.RightEar, detection.RightShoulder},
		{detection.LeftShoulder, detection.RightShoulder},
		{detection.LeftShoulder, detection.LeftElbow},
		{detection.RightShoulder, detection.RightElbow},
		{detection.LeftElbow, detection.LeftWrist},
		{detection.RightElbow, detection.RightWrist},
		{detection.LeftShoulder, detection.LeftHip},
		{detection.RightShoulder, detection.RightHip},
		{detection.LeftShoulder, detection.RightHip},
		{detection.RightShoulder, detection.LeftHip},
		{detection.LeftHip, detection.RightHip},
		{detection.LeftHip, detection.LeftKnee},
		{detection.RightHip, detection.RightKnee},
		{detection.LeftKnee, detection.LeftAnkle},
		{detection.RightKnee, detection.RightAnkle},
		{detection.LeftKnee, detection.RightKnee},
		{detection.LeftAnkle, detection.RightAnkle},
	}

	debugColor     = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	debugFaceColor = color.RGBA{R: 0xFF, A: 0xFF}
)

// debugAlpha is the opacity of the debug skeleton.
const debugAlpha = 0.7

// skeleton indexes keypoints by body part. The first point of a part wins.
type skeleton map[detection.BodyPart]KeyPoint

func newSkeleton(points []KeyPoint) skeleton {
	s := make(skeleton, len(points))
	for _, p := range points {
		if _, ok := s[p.Part]; !ok {
			s[p.Part] = p
		}
	}
	return s
}

// scored returns the point when present with a non-zero score.
func (s skeleton) scored(part detection.BodyPart) (KeyPoint, bool) {
	p, ok := s[part]
	return p, ok && p.Score != 0
}

// SkeletonDrawer draws detection masks and face regions on the display canvas.
type SkeletonDrawer struct {
	config Config
}

// NewSkeletonDrawer builds a drawer from the redaction policy.
func NewSkeletonDrawer(cfg Config) *SkeletonDrawer {
	return &SkeletonDrawer{config: cfg}
}

// StrokeWidth sizes the mask stroke relative to the canvas and the pose.
//
// Without scored points the width is a share of the smaller canvas side.
// Otherwise the pose size ratio r = max(poseW/w, poseH/h) blends the pose and
// canvas dimensions: base = min(poseW, poseH)*(1-r) + min(w,h)/1.2*r, and the
// width is base * multiplier * r, at least MinStrokeWidth.
//
// Arguments:
//   - w: Canvas width.
//   - h: Canvas height.
//   - mode: ModeDebug returns DebugStrokeWidth when points exist.
//   - gender: Female uses the wider multiplier; anything else the male one.
//   - points: The person's canvas keypoints.
//
// Returns:
//   - float32: The stroke width in pixels.
func (d *SkeletonDrawer) StrokeWidth(w, h int, mode Mode, gender detection.Gender, points []KeyPoint) float32 {
	female := gender == detection.GenderFemale
	cw, ch := float32(w), float32(h)
	smaller := math32.Min(cw, ch)

	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	valid := 0
	for _, p := range points {
		if p.Score == 0 {
			continue
		}
		valid++
		minX, maxX = math32.Min(minX, p.Point.X), math32.Max(maxX, p.Point.X)
		minY, maxY = math32.Min(minY, p.Point.Y), math32.Max(maxY, p.Point.Y)
	}

	if valid == 0 {
		mult := d.config.FallbackMaleMultiplier
		if female {
			mult = d.config.FemaleStrokeMultiplier
		}
		return math32.Max(d.config.MinFallbackStrokeWidth, math32.Round(smaller*mult))
	}
	if mode == ModeDebug {
		return d.config.DebugStrokeWidth
	}

	poseW, poseH := maxX-minX, maxY-minY
	ratio := math32.Max(poseW/cw, poseH/ch)
	base := math32.Min(poseW, poseH)*(1-ratio) + smaller/1.2*ratio
	mult := d.config.MaleStrokeMultiplier
	if female {
		mult = d.config.FemaleStrokeMultiplier
	}
	return math32.Max(d.config.MinStrokeWidth, math32.Round(base*mult*ratio))
}

// DrawDetectionMask paints the body mask of one person onto mask.
//
// Males get the lower body only (hips and knees), drawn where both endpoint
// scores exceed MinPartScoreMale. Everyone else gets shoulders, arms, torso,
// hips and legs. Females additionally get the neck at twice the width, a
// neck to groin line and boxes over the eyes and ears.
//
// Arguments:
//   - mask: The target canvas; in ModeDetection touched pixels hold exactly MaskColor.
//   - points: Canvas keypoints, already filtered by score.
//   - gender: The mask gender (see detection.Gender.MaskGender).
//   - mode: ModeDetection or ModeDebug.
func (d *SkeletonDrawer) DrawDetectionMask(mask *image.RGBA, points []KeyPoint, gender detection.Gender, mode Mode) {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	width := d.StrokeWidth(w, h, mode, gender, points)
	s := newSkeleton(points)
	cov := newCoverage(w, h)

	if gender == detection.GenderMale {
		for _, c := range lowerBodyConnections {
			a, okA := s[c[0]]
			b, okB := s[c[1]]
			if okA && okB && a.Score > d.config.MinPartScoreMale && b.Score > d.config.MinPartScoreMale {
				cov.segment(a.Point, b.Point, width)
			}
		}
		d.paint(mask, cov, mode)
		return
	}

	for _, c := range bodyConnections {
		a, okA := s.scored(c[0])
		b, okB := s.scored(c[1])
		if okA && okB {
			cov.segment(a.Point, b.Point, width)
		}
	}

	if gender == detection.GenderFemale {
		d.femaleExtras(cov, s, width)
	}
	d.paint(mask, cov, mode)
}

func (d *SkeletonDrawer) femaleExtras(cov *coverage, s skeleton, width float32) {
	nose, okNose := s[detection.Nose]
	ls, okLS := s[detection.LeftShoulder]
	rs, okRS := s[detection.RightShoulder]

	if okNose && okLS && okRS {
		neckLeft := nose.Point.Mid(ls.Point)
		neckRight := nose.Point.Mid(rs.Point)
		neckMiddle := neckLeft.Mid(neckRight)

		if nose.Score != 0 {
			if ls.Score != 0 {
				cov.segment(nose.Point, neckLeft, width*2)
			}
			if rs.Score != 0 {
				cov.segment(nose.Point, neckRight, width*2)
			}
		}

		lh, okLH := s.scored(detection.LeftHip)
		rh, okRH := s.scored(detection.RightHip)
		if okLH && okRH {
			cov.segment(neckMiddle, lh.Point.Mid(rh.Point), width*2)
		}
	}

	var eyeDistance float32
	le, okLE := s[detection.LeftEye]
	re, okRE := s[detection.RightEye]
	if okLE && okRE {
		eyeDistance = math32.Abs(le.Point.X - re.Point.X)
		box(cov, le.Point, re.Point, eyeDistance, width)
	}

	lear, okLEar := s[detection.LeftEar]
	rear, okREar := s[detection.RightEar]
	if okLEar && okREar {
		dist := eyeDistance
		if dist == 0 {
			dist = math32.Abs(lear.Point.X - rear.Point.X)
		}
		box(cov, lear.Point, rear.Point, dist*1.5, width)
	}
}

// box outlines the quad spanned by a, b and the same points raised by rise.
func box(cov *coverage, a, b common.CanvasPoint, rise, width float32) {
	aUp := common.CanvasPoint{X: a.X, Y: a.Y - rise}
	bUp := common.CanvasPoint{X: b.X, Y: b.Y - rise}
	cov.segment(a, aUp, width)
	cov.segment(aUp, bUp, width)
	cov.segment(bUp, b, width)
	cov.segment(b, a, width)
}

func (d *SkeletonDrawer) paint(dst *image.RGBA, cov *coverage, mode Mode) {
	if mode == ModeDetection {
		cov.stamp(dst, d.config.MaskColor)
		return
	}
	blend(dst, cov.alpha(), debugColor, debugAlpha)
}

// DrawSkeleton overlays the debug skeleton: grey limbs and red face points.
func (d *SkeletonDrawer) DrawSkeleton(dst *image.RGBA, points []KeyPoint) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	width := d.StrokeWidth(w, h, ModeDebug, detection.GenderFemale, points)
	s := newSkeleton(points)

	limbs := newCoverage(w, h)
	for _, c := range skeletonConnections {
		a, okA := s[c[0]]
		b, okB := s[c[1]]
		if okA && okB {
			limbs.segment(a.Point, b.Point, width)
		}
	}
	blend(dst, limbs.alpha(), debugColor, debugAlpha)

	faces := newCoverage(w, h)
	for _, p := range points {
		if p.Part.IsFacePart() {
			faces.ellipse(p.Point, width/2, width/2)
		}
	}
	blend(dst, faces.alpha(), debugFaceColor, 1)
}

// blend draws col through the coverage mask scaled by alpha.
func blend(dst *image.RGBA, cov *image.Alpha, col color.RGBA, alpha float64) {
	src := &image.Uniform{C: color.NRGBA{R: col.R, G: col.G, B: col.B, A: uint8(alpha * 255)}}
	draw.DrawMask(dst, dst.Rect, src, image.Point{}, cov, cov.Rect.Min, draw.Over)
}
