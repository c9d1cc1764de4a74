package detection

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
)

// UnassignedID marks a person without a stable identity.
const UnassignedID = -1

// DefaultPartThreshold is the minimum keypoint confidence for a point to
// contribute to the pose box and score.
const DefaultPartThreshold float32 = 0.1

// KeyPoint is one skeletal landmark in working-image pixels.
type KeyPoint struct {
	BodyPart   BodyPart
	Coordinate common.PixelPoint
	Score      float32
}

// Gender is the outcome of gender classification for a person.
type Gender int

const (
	// GenderUnknown means no face was matched, so gender was never classified.
	GenderUnknown Gender = iota
	// GenderMale means the face classified as male.
	GenderMale
	// GenderFemale means the face classified as female.
	GenderFemale
)

// String returns a lowercase name for logging.
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "unknown"
	}
}

// ErrUnknownGender is returned when a wire name is not a gender.
var ErrUnknownGender = errors.New("unknown gender")

// ParseGender parses the name returned by String.
func ParseGender(name string) (Gender, error) {
	switch name {
	case "unknown":
		return GenderUnknown, nil
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	}
	return GenderUnknown, errors.Wrapf(ErrUnknownGender, "%q", name)
}

// IsFemale reports whether the person classified as female. Unknown is false.
func (g Gender) IsFemale() bool {
	return g == GenderFemale
}

// MaskGender is the gender used to draw the detection mask. Only a confirmed
// male gets the narrow lower-body mask; unknown falls back to the full mask.
func (g Gender) MaskGender() Gender {
	if g == GenderMale {
		return GenderMale
	}
	return GenderFemale
}

// AnalysisRegion is the skin-analysis region for this gender.
func (g Gender) AnalysisRegion() Region {
	if g == GenderMale {
		return RegionLowerBody
	}
	return RegionFull
}

// Region selects which skin-ratio threshold applies.
type Region string

const (
	// RegionFull analyses the whole body mask.
	RegionFull Region = "full"
	// RegionLowerBody analyses the hip/knee mask drawn for males.
	RegionLowerBody Region = "lowerBody"
)

// Person is one detected individual.
type Person struct {
	ID        int
	KeyPoints []KeyPoint
	// Score is the mean confidence of the valid keypoints.
	Score   float32
	PoseBox *common.PixelRect
	// FaceBox is the matched face in working-image pixels.
	FaceBox *common.PixelRect
	// FaceBoxNormalized is kept when the face detector reported normalized boxes.
	FaceBoxNormalized *common.NormalizedRect
	FaceScore         float32
	Gender            Gender
	// GenderScore is the confidence of Gender; meaningful only with a FaceBox.
	GenderScore float32
}

// HasFace reports whether a face was matched to the person.
func (p *Person) HasFace() bool {
	return p.FaceBox != nil
}

// NewPerson builds a person from raw keypoints, keeping only points whose
// score exceeds threshold. The pose box and score are derived from the kept
// points.
//
// Arguments:
//   - id: The person id (detector instance index, or UnassignedID).
//   - points: Raw keypoints in detector order.
//   - threshold: Minimum score for a point to be kept.
//
// Returns:
//   - Person: The person with PoseBox and Score populated.
//   - bool: False when no point survived the threshold.
func NewPerson(id int, points []KeyPoint, threshold float32) (Person, bool) {
	kept := make([]KeyPoint, 0, len(points))
	var sum float32
	box := common.PixelRect{
		X1: math.MaxFloat32,
		Y1: math.MaxFloat32,
		X2: -math.MaxFloat32,
		Y2: -math.MaxFloat32,
	}
	for _, kp := range points {
		if kp.Score <= threshold {
			continue
		}
		kept = append(kept, kp)
		sum += kp.Score
		box.X1 = math32.Min(box.X1, kp.Coordinate.X)
		box.Y1 = math32.Min(box.Y1, kp.Coordinate.Y)
		box.X2 = math32.Max(box.X2, kp.Coordinate.X)
		box.Y2 = math32.Max(box.Y2, kp.Coordinate.Y)
	}
	if len(kept) == 0 {
		return Person{}, false
	}

	return Person{
		ID:        id,
		KeyPoints: kept,
		Score:     sum / float32(len(kept)),
		PoseBox:   &box,
	}, true
}
