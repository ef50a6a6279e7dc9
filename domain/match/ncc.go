package match

import "math"

// varianceFloor keeps the NCC denominator away from zero on flat regions.
const varianceFloor = 1e-8

// NoMatch is returned when no valid alignment of the template inside the
// scene exists (template larger than the search area in either dimension).
const NoMatch = -1.0

// MaxNCC returns the maximum normalized cross-correlation of tpl over every
// valid top-left alignment inside scene. Scores lie approximately in [-1,1];
// identical buffers score 1 within floating tolerance. The scan is a direct
// brute-force O(sceneW*sceneH*tplW*tplH) pass with double-precision
// accumulation; there is no stride, pyramid, or FFT shortcut.
func MaxNCC(scene, tpl *Gray) float64 {
	if scene == nil || tpl == nil || tpl.W > scene.W || tpl.H > scene.H || tpl.W == 0 || tpl.H == 0 {
		return NoMatch
	}
	n := float64(tpl.W * tpl.H)

	var sumT, sumT2 float64
	for _, v := range tpl.Pix {
		sumT += v
		sumT2 += v * v
	}
	meanT := sumT / n
	varT := sumT2/n - meanT*meanT
	if varT <= varianceFloor {
		varT = varianceFloor
	}

	best := NoMatch
	for y := 0; y+tpl.H <= scene.H; y++ {
		for x := 0; x+tpl.W <= scene.W; x++ {
			var sumI, sumI2, sumIT float64
			for j := 0; j < tpl.H; j++ {
				srow := scene.Pix[(y+j)*scene.W+x:]
				trow := tpl.Pix[j*tpl.W:]
				for i := 0; i < tpl.W; i++ {
					vi := srow[i]
					vt := trow[i]
					sumI += vi
					sumI2 += vi * vi
					sumIT += vi * vt
				}
			}
			meanI := sumI / n
			varI := sumI2/n - meanI*meanI
			if varI <= varianceFloor {
				varI = varianceFloor
			}
			cov := sumIT/n - meanI*meanT
			ncc := cov / (math.Sqrt(varI) * math.Sqrt(varT))
			if ncc > best {
				best = ncc
			}
		}
	}
	return best
}

// MaxNCCRegion runs MaxNCC over the sub-rectangle r of scene. The region is
// clamped to the scene bounds before the scan.
func MaxNCCRegion(scene *Gray, r Rect, tpl *Gray) float64 {
	if scene == nil {
		return NoMatch
	}
	return MaxNCC(scene.SubGray(r), tpl)
}
