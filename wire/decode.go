package wire

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
)

type envelope struct {
	IsNSFW      bool              `json:"isNSFW"`
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Persons     map[string]Person `json:"persons"`
}

// Decode parses a payload produced by Encode.
//
// Persons are ordered by their numeric key. Gender is read from the gender
// field. Without it the renderer rule applies: female when isFemale is set,
// otherwise male when a face box is present and unknown without one.
//
// Arguments:
//   - data: The JSON payload.
//
// Returns:
//   - detection.DetectionResult: The decoded result.
//   - error: A syntax error, a non-numeric person key, an unknown body part or
//     an unknown gender.
func Decode(data []byte) (detection.DetectionResult, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return detection.DetectionResult{}, errors.Wrap(err, "decode detection result")
	}
	if env.IsNSFW {
		return detection.DetectionResult{IsNSFW: true}, nil
	}

	type keyed struct {
		index  int
		person Person
	}
	ordered := make([]keyed, 0, len(env.Persons))
	for key, p := range env.Persons {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return detection.DetectionResult{}, errors.Wrapf(err, "person key %q", key)
		}
		ordered = append(ordered, keyed{idx, p})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	res := detection.DetectionResult{
		ImageWidth:  env.ImageWidth,
		ImageHeight: env.ImageHeight,
		Persons:     make([]detection.Person, 0, len(ordered)),
	}
	for _, k := range ordered {
		p, err := decodePerson(k.person)
		if err != nil {
			return detection.DetectionResult{}, errors.Wrapf(err, "person %d", k.index)
		}
		res.Persons = append(res.Persons, p)
	}
	return res, nil
}

func decodePerson(in Person) (detection.Person, error) {
	points := make([]detection.KeyPoint, len(in.Keypoints))
	for i, kp := range in.Keypoints {
		part, err := detection.ParseBodyPart(kp.Name)
		if err != nil {
			return detection.Person{}, err
		}
		points[i] = detection.KeyPoint{
			BodyPart:   part,
			Coordinate: common.PixelPoint{X: kp.X, Y: kp.Y},
			Score:      kp.Score,
		}
	}

	// Derive the pose box from every point; the score comes from the wire.
	p, ok := detection.NewPerson(in.ID, points, -1)
	if !ok {
		p = detection.Person{ID: in.ID, KeyPoints: points}
	}
	p.Score = in.PoseScore
	p.FaceScore = in.FaceScore
	p.GenderScore = in.GenderScore

	switch {
	case in.Gender != "":
		g, err := detection.ParseGender(in.Gender)
		if err != nil {
			return detection.Person{}, err
		}
		p.Gender = g
	case in.IsFemale:
		p.Gender = detection.GenderFemale
	case in.FaceBox != nil:
		p.Gender = detection.GenderMale
	default:
		p.Gender = detection.GenderUnknown
	}
	if in.FaceBox != nil {
		box := common.PixelRect{X1: in.FaceBox.XMin, Y1: in.FaceBox.YMin, X2: in.FaceBox.XMax, Y2: in.FaceBox.YMax}
		p.FaceBox = &box
	}
	return p, nil
}
