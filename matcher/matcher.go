// Package matcher - Assigns detected faces to detected poses.
package matcher

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/inference/detectors"
)

// Stats summarizes one matching pass.
type Stats struct {
	// Assigned is the number of poses that received a face.
	Assigned int
	// SharedFaces is the number of faces claimed by more than one pose.
	SharedFaces int
}

// Match assigns to each pose the closest face whose centre lies within the
// pose radius. See MatchWithStats.
func Match(poses []detection.Person, faces []detectors.Face, imgW, imgH int) []detection.Person {
	out, _ := MatchWithStats(poses, faces, imgW, imgH)
	return out
}

// MatchWithStats assigns faces to poses greedily, pose by pose.
//
// For a pose box of size w x h the radius is max(w, h). A face is eligible
// when the distance d between the two centres is at most the radius, and
// scores 1 - d/radius. The best score wins; ties keep the earlier face. A face
// may be claimed by several poses.
//
// Arguments:
//   - poses: People from the pose estimator; not modified.
//   - faces: Faces from the face detector, in any coordinate space.
//   - imgW: The working image width.
//   - imgH: The working image height.
//
// Returns:
//   - []detection.Person: Copies of poses with FaceBox, FaceBoxNormalized and FaceScore set.
//   - Stats: Assignment counters.
func MatchWithStats(poses []detection.Person, faces []detectors.Face, imgW, imgH int) ([]detection.Person, Stats) {
	boxes := make([]common.PixelRect, len(faces))
	valid := make([]bool, len(faces))
	for i, f := range faces {
		boxes[i], valid[i] = f.PixelBox(imgW, imgH)
	}

	claims := make([]int, len(faces))
	out := make([]detection.Person, len(poses))
	var stats Stats

	for i, pose := range poses {
		out[i] = pose
		if pose.PoseBox == nil {
			continue
		}
		radius := math32.Max(pose.PoseBox.Width(), pose.PoseBox.Height())
		if radius <= 0 {
			continue
		}
		center := pose.PoseBox.Center()

		best, bestScore := -1, float32(-1)
		for j := range faces {
			if !valid[j] {
				continue
			}
			d := center.Distance(boxes[j].Center())
			if d > radius {
				continue
			}
			if score := 1 - d/radius; score > bestScore {
				best, bestScore = j, score
			}
		}
		if best < 0 {
			continue
		}

		box := boxes[best]
		out[i].FaceBox = &box
		out[i].FaceBoxNormalized = nil
		if n := faces[best].Normalized; n != nil {
			norm := *n
			out[i].FaceBoxNormalized = &norm
		}
		out[i].FaceScore = faces[best].Score
		claims[best]++
		stats.Assigned++
	}

	for _, c := range claims {
		if c > 1 {
			stats.SharedFaces++
		}
	}
	return out, stats
}
