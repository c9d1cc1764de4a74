// Package wire - JSON payload exchanged between the inference host and the page renderer.
package wire

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
)

// KeyPoint is one keypoint on the wire.
type KeyPoint struct {
	Name  string  `json:"name"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Score float32 `json:"score"`
}

// FaceBox is a pixel face box on the wire.
type FaceBox struct {
	XMin   float32 `json:"xMin"`
	XMax   float32 `json:"xMax"`
	YMin   float32 `json:"yMin"`
	YMax   float32 `json:"yMax"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Person is one person on the wire. Gender is unknown, male or female;
// readers that predate it fall back to IsFemale.
type Person struct {
	Keypoints   []KeyPoint `json:"keypoints"`
	PoseScore   float32    `json:"poseScore"`
	FaceBox     *FaceBox   `json:"faceBox,omitempty"`
	IsFemale    bool       `json:"isFemale"`
	Gender      string     `json:"gender,omitempty"`
	GenderScore float32    `json:"genderScore"`
	ID          int        `json:"id"`
	FaceScore   float32    `json:"faceScore"`
}

// Payload is a safe detection result on the wire. Persons are keyed by their
// decimal index.
type Payload struct {
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Persons     map[string]Person `json:"persons"`
}

type unsafePayload struct {
	IsNSFW bool `json:"isNSFW"`
}

// Encode serializes a detection result. An unsafe result is exactly
// {"isNSFW":true}; any other result carries the image size and the persons.
//
// Arguments:
//   - r: The detection result.
//
// Returns:
//   - []byte: The JSON payload.
//   - error: A marshalling error.
//
// @example
//
//	payload, err := wire.Encode(pipeline.Result(outcome))
func Encode(r detection.DetectionResult) ([]byte, error) {
	if r.IsNSFW {
		return json.Marshal(unsafePayload{IsNSFW: true})
	}

	p := Payload{
		ImageWidth:  r.ImageWidth,
		ImageHeight: r.ImageHeight,
		Persons:     make(map[string]Person, len(r.Persons)),
	}
	for i := range r.Persons {
		p.Persons[strconv.Itoa(i)] = encodePerson(&r.Persons[i])
	}

	data, err := json.Marshal(p)
	return data, errors.Wrap(err, "encode detection result")
}

func encodePerson(p *detection.Person) Person {
	out := Person{
		Keypoints:   make([]KeyPoint, len(p.KeyPoints)),
		PoseScore:   p.Score,
		IsFemale:    p.Gender.IsFemale(),
		Gender:      p.Gender.String(),
		GenderScore: p.GenderScore,
		ID:          p.ID,
		FaceScore:   p.FaceScore,
	}
	for i, kp := range p.KeyPoints {
		out.Keypoints[i] = KeyPoint{
			Name:  kp.BodyPart.String(),
			X:     kp.Coordinate.X,
			Y:     kp.Coordinate.Y,
			Score: kp.Score,
		}
	}
	if p.FaceBox != nil {
		out.FaceBox = newFaceBox(*p.FaceBox)
	}
	return out
}

func newFaceBox(r common.PixelRect) *FaceBox {
	return &FaceBox{
		XMin:   r.X1,
		XMax:   r.X2,
		YMin:   r.Y1,
		YMax:   r.Y2,
		Width:  r.Width(),
		Height: r.Height(),
	}
}
