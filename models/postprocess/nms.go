// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import "sort"

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Overlap threshold for suppression.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iou_threshold"`
	// If true, suppress only within same class.
	ClassAware bool `json:"classAware" yaml:"class_aware"`
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Detections are ordered by descending score (stable for equal scores), then
// every box overlapping an already kept box by more than the threshold is
// dropped. The input slice is not modified.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: NMS configuration.
//
// Returns:
//   - Filtered slice of detections, highest score first. Nil when empty.
//
// @example
// faces := ApplyGreedyNMS(candidates, &NMSConfig{IoUThreshold: 0.3})
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != sorted[j].Class {
				continue
			}

			// Suppress if IoU exceeds threshold
			if anchor.Box.IOU(sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
