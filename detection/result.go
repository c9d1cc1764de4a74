package detection

// DetectionResult is the artifact exchanged between the inference host and
// the renderer. Coordinates are expressed against ImageWidth x ImageHeight.
type DetectionResult struct {
	ImageWidth  int
	ImageHeight int
	Persons     []Person
	IsNSFW      bool
}

// Summary is the single-verdict view of a result used by callers that only
// need to know whether to blur.
type Summary struct {
	FaceCount  int
	HasFemale  bool
	ShouldBlur bool
}

// Summarize collapses a result into a Summary. An unsafe image always blurs;
// a safe one blurs when any matched face classified female.
func (r DetectionResult) Summarize() Summary {
	var s Summary
	for i := range r.Persons {
		if !r.Persons[i].HasFace() {
			continue
		}
		s.FaceCount++
		if r.Persons[i].Gender.IsFemale() {
			s.HasFemale = true
		}
	}
	s.ShouldBlur = r.IsNSFW || (s.FaceCount > 0 && s.HasFemale)
	return s
}
