// Package detection - Data model produced by the pipeline and consumed by the renderer.
package detection

import (
	"github.com/pkg/errors"
)

// BodyPart is one of the 17 skeletal landmarks reported by the pose estimator.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumBodyParts is the size of the keypoint vocabulary.
const NumBodyParts = 17

var bodyPartNames = [NumBodyParts]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// ErrUnknownBodyPart is returned when a wire name is not in the vocabulary.
var ErrUnknownBodyPart = errors.New("unknown body part")

// String returns the wire name of the body part.
func (b BodyPart) String() string {
	if b < 0 || int(b) >= NumBodyParts {
		return "unknown"
	}
	return bodyPartNames[b]
}

// IsFacePart reports whether the part belongs to the face (nose, eyes, ears).
func (b BodyPart) IsFacePart() bool {
	return b >= Nose && b <= RightEar
}

// ParseBodyPart parses a wire name.
//
// Arguments:
//   - name: The wire name, e.g. "left_shoulder".
//
// Returns:
//   - BodyPart: The parsed part.
//   - error: ErrUnknownBodyPart if the name is not recognised.
func ParseBodyPart(name string) (BodyPart, error) {
	for i, n := range bodyPartNames {
		if n == name {
			return BodyPart(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownBodyPart, "%q", name)
}
