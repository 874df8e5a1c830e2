// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"math"

	"github.com/gogpu/dof/internal/mathx"
	"github.com/gogpu/dof/internal/parallel"
	"github.com/gogpu/dof/surface"
)

const (
	// tileSize is the tile edge, in half resolution pixels, of the CoC bound.
	tileSize = 8

	// holeEpsilon is the accumulated weight below which a gather result
	// counts as a hole.
	holeEpsilon = 1e-4

	// gatherSamples is the number of samples per gather: taps plus center.
	gatherSamples = NumBokehTaps + 1

	// alphaLow and alphaHigh bound the smoothstep that fades the fields in,
	// in full resolution pixels of CoC radius.
	alphaLow  = 0.5
	alphaHigh = 2
)

// cubicUpsampleWeights are the Catmull-Rom weights of a 2x upsample.
// Row 0 is for even destination coordinates (taps k-2..k+1 at distances
// 1.75, 0.75, 0.25, 1.25); row 1 for odd ones (taps k-1..k+2).
var cubicUpsampleWeights = [2][4]float32{
	{-0.0234375, 0.2265625, 0.8671875, -0.0703125},
	{-0.0703125, 0.8671875, 0.2265625, -0.0234375},
}

// passParams carries everything one ApplyEffect call hands to the stages.
type passParams struct {
	color *surface.Image
	depth *surface.Image
	out   *surface.Image

	targets *TargetSet
	coc     CoCParams
	taps    BokehTaps
	blend   float32

	// halfRadius is the maximum CoC radius in half resolution pixels.
	halfRadius float32

	// tileReach is the number of neighbor tiles on each side whose CoC can
	// reach into a tile.
	tileReach int

	// nearBlurRadius is the box radius of the near CoC blur.
	nearBlurRadius int
}

func newPassParams(color, depth, out *surface.Image, targets *TargetSet, coc CoCParams, taps BokehTaps, blend float32) *passParams {
	half := coc.MaxRadius / 2
	return &passParams{
		color:          color,
		depth:          depth,
		out:            out,
		targets:        targets,
		coc:            coc,
		taps:           taps,
		blend:          blend,
		halfRadius:     half,
		tileReach:      max(1, int(math.Ceil(float64(half)/tileSize))),
		nearBlurRadius: max(1, int(math.Ceil(float64(half)/2))),
	}
}

func (p *passParams) slot(s Slot) *surface.Image {
	return p.targets.images[s]
}

// runCoC writes the packed near/far CoC at full resolution.
func runCoC(p *passParams, d *parallel.Dispatcher) {
	dst := p.slot(SlotCoC)
	depth := p.depth
	dpix := depth.Pix()
	w := dst.Width()

	d.Rows(dst.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Row(y)
			for x := 0; x < w; x++ {
				c := p.coc.CoC(dpix[depth.Offset(x, y)])
				row[2*x] = max(c, 0)
				row[2*x+1] = max(-c, 0)
			}
		}
	})
}

// runDownsample reduces color and CoC 2x2 to half resolution.
func runDownsample(p *passParams, d *parallel.Dispatcher) {
	color := p.color
	coc := p.slot(SlotCoC)
	dstColor := p.slot(SlotColor)
	dstFar := p.slot(SlotColorFar)
	dstCoC := p.slot(SlotCoCRaw)
	w := dstColor.Width()

	cpix := color.Pix()
	kpix := coc.Pix()

	d.Rows(dstColor.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			rc, rf, rk := dstColor.Row(y), dstFar.Row(y), dstCoC.Row(y)
			for x := 0; x < w; x++ {
				var sum [4]float32
				var far [3]float32
				var farSum, nearMax float32
				for j := 0; j < 2; j++ {
					for i := 0; i < 2; i++ {
						sx, sy := 2*x+i, 2*y+j
						ci := color.Offset(sx, sy)
						ki := coc.Offset(sx, sy)
						near, f := kpix[ki], kpix[ki+1]
						for c := 0; c < 4; c++ {
							sum[c] += cpix[ci+c]
						}
						for c := 0; c < 3; c++ {
							far[c] += cpix[ci+c] * f
						}
						farSum += f
						nearMax = max(nearMax, near)
					}
				}
				o := 4 * x
				rc[o+0] = sum[0] * 0.25
				rc[o+1] = sum[1] * 0.25
				rc[o+2] = sum[2] * 0.25
				rc[o+3] = sum[3] * 0.25
				rf[o+0] = far[0] * 0.25
				rf[o+1] = far[1] * 0.25
				rf[o+2] = far[2] * 0.25
				rf[o+3] = farSum * 0.25
				rk[2*x] = nearMax
				rk[2*x+1] = farSum * 0.25
			}
		}
	})
}

// tileRange returns the pixel range [lo, hi) covered by the tile holding
// pos and reach neighbor tiles on each side.
func tileRange(pos, reach, n int) (lo, hi int) {
	t := pos / tileSize
	return max((t-reach)*tileSize, 0), min((t+reach+1)*tileSize, n)
}

// runTileMinMaxH bounds the CoC along rows: SlotCoCRaw -> SlotCoCPing.
func runTileMinMaxH(p *passParams, d *parallel.Dispatcher) {
	src := p.slot(SlotCoCRaw)
	dst := p.slot(SlotCoCPing)
	w := src.Width()
	tiles := (w + tileSize - 1) / tileSize
	reach := p.tileReach

	d.Rows(dst.Height(), func(y0, y1 int) {
		tileMax := make([]float32, 2*tiles)
		for y := y0; y < y1; y++ {
			in, out := src.Row(y), dst.Row(y)
			clear(tileMax)
			for x := 0; x < w; x++ {
				t := x / tileSize
				tileMax[2*t] = max(tileMax[2*t], in[2*x])
				tileMax[2*t+1] = max(tileMax[2*t+1], in[2*x+1])
			}
			for t := 0; t < tiles; t++ {
				var n, f float32
				for u := max(t-reach, 0); u <= min(t+reach, tiles-1); u++ {
					n = max(n, tileMax[2*u])
					f = max(f, tileMax[2*u+1])
				}
				for x := t * tileSize; x < min((t+1)*tileSize, w); x++ {
					out[2*x] = n
					out[2*x+1] = f
				}
			}
		}
	})
}

// runTileMinMaxV bounds the CoC along columns: SlotCoCPing -> SlotCoCPong.
func runTileMinMaxV(p *passParams, d *parallel.Dispatcher) {
	src := p.slot(SlotCoCPing)
	dst := p.slot(SlotCoCPong)
	h := src.Height()
	stride := src.Stride()

	d.Rows(h, func(y0, y1 int) {
		bound := make([]float32, stride)
		lastLo, lastHi := -1, -1
		for y := y0; y < y1; y++ {
			// Near the edges lo or hi is clamped while the other still
			// moves, so the range is only reusable when both match.
			lo, hi := tileRange(y, p.tileReach, h)
			if lo != lastLo || hi != lastHi {
				clear(bound)
				for r := lo; r < hi; r++ {
					for i, v := range src.Row(r) {
						bound[i] = max(bound[i], v)
					}
				}
				lastLo, lastHi = lo, hi
			}
			copy(dst.Row(y), bound)
		}
	})
}

// runNearCoCBlurH box blurs the near bound along rows: SlotCoCPong -> SlotCoCPing.
func runNearCoCBlurH(p *passParams, d *parallel.Dispatcher) {
	src := p.slot(SlotCoCPong)
	dst := p.slot(SlotCoCPing)
	w := src.Width()
	r := p.nearBlurRadius
	norm := 1 / float32(2*r+1)

	d.Rows(dst.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			in, out := src.Row(y), dst.Row(y)
			for x := 0; x < w; x++ {
				var sum float32
				for i := -r; i <= r; i++ {
					sum += in[2*mathx.Clamp(x+i, 0, w-1)]
				}
				out[2*x] = sum * norm
				out[2*x+1] = in[2*x+1]
			}
		}
	})
}

// runNearCoCBlurV box blurs the near bound along columns and keeps it at or
// above the raw near CoC: SlotCoCPing + SlotCoCRaw -> SlotCoCPong.
func runNearCoCBlurV(p *passParams, d *parallel.Dispatcher) {
	src := p.slot(SlotCoCPing)
	raw := p.slot(SlotCoCRaw)
	dst := p.slot(SlotCoCPong)
	w, h := src.Width(), src.Height()
	r := p.nearBlurRadius
	norm := 1 / float32(2*r+1)

	d.Rows(h, func(y0, y1 int) {
		sum := make([]float32, w)
		for y := y0; y < y1; y++ {
			clear(sum)
			for i := -r; i <= r; i++ {
				in := src.Row(mathx.Clamp(y+i, 0, h-1))
				for x := range sum {
					sum[x] += in[2*x]
				}
			}
			in, rk, out := src.Row(y), raw.Row(y), dst.Row(y)
			for x := range sum {
				out[2*x] = max(sum[x]*norm, rk[2*x])
				out[2*x+1] = in[2*x+1]
			}
		}
	})
}

// coverage is the scatter-as-gather weight of a sample with normalized CoC
// coc at distance dist from the destination pixel.
func coverage(radius, coc, dist float32) float32 {
	if coc <= 0 {
		return 0
	}
	return mathx.Saturate(radius*coc - dist + 1)
}

// runBokeh gathers the near and far fields. The results are un-normalized:
// rgb holds the weighted color sum, a the weight sum.
func runBokeh(p *passParams, d *parallel.Dispatcher) {
	raw := p.slot(SlotCoCRaw)
	bound := p.slot(SlotCoCPong)
	color := p.slot(SlotColor)
	colorFar := p.slot(SlotColorFar)
	nearOut := p.slot(SlotNearField)
	farOut := p.slot(SlotFarField)
	w := raw.Width()
	R := p.halfRadius

	rpix, bpix := raw.Pix(), bound.Pix()
	cpix, fpix := color.Pix(), colorFar.Pix()

	var tapDist [NumBokehTaps]float32
	for i, t := range p.taps {
		tapDist[i] = float32(math.Hypot(float64(t[0]), float64(t[1])))
	}

	d.Rows(nearOut.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			nrow, frow := nearOut.Row(y), farOut.Row(y)
			for x := 0; x < w; x++ {
				bi := bound.Offset(x, y)
				scale := R * max(bpix[bi], bpix[bi+1]) / bokehRingRadius

				var near, far [4]float32
				for i := -1; i < NumBokehTaps; i++ {
					qx, qy := x, y
					var dist float32
					if i >= 0 {
						t := p.taps[i]
						qx += int(math.Round(float64(t[0] * scale)))
						qy += int(math.Round(float64(t[1] * scale)))
						dist = tapDist[i] * scale
					}
					ri := raw.ClampedOffset(qx, qy)
					ci := color.ClampedOffset(qx, qy)

					if wn := coverage(R, rpix[ri], dist); wn > 0 {
						near[0] += cpix[ci] * wn
						near[1] += cpix[ci+1] * wn
						near[2] += cpix[ci+2] * wn
						near[3] += wn
					}
					if wf := coverage(R, rpix[ri+1], dist); wf > 0 {
						far[0] += fpix[ci] * wf
						far[1] += fpix[ci+1] * wf
						far[2] += fpix[ci+2] * wf
						far[3] += fpix[ci+3] * wf
					}
				}
				copy(nrow[4*x:4*x+4], near[:])
				copy(frow[4*x:4*x+4], far[:])
			}
		}
	})
}

// runFill normalizes both fields in place and then fills holes from their
// covered 3x3 neighborhood.
//
// After normalization the alpha of a near field pixel is its coverage and
// the alpha of a far field pixel is 1; holes have alpha 0. Near holes are
// only filled where the blurred near CoC bound is non-zero, far holes only
// where the raw far CoC is; elsewhere the composite never reads the field.
// Hole filling writes only the rgb of holes and reads only covered pixels,
// so row bands never observe each other's writes.
func runFill(p *passParams, d *parallel.Dispatcher) {
	near := p.slot(SlotNearField)
	far := p.slot(SlotFarField)
	raw := p.slot(SlotCoCRaw)
	bound := p.slot(SlotCoCPong)

	d.Rows(near.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			normalizeRow(near.Row(y), func(sum float32) float32 {
				return mathx.Saturate(sum / gatherSamples)
			})
			normalizeRow(far.Row(y), func(float32) float32 { return 1 })
		}
	})

	d.Rows(near.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			fillHoles(near, y, bound.Row(y), 0)
			fillHoles(far, y, raw.Row(y), 1)
		}
	})
}

func normalizeRow(row []float32, alpha func(sum float32) float32) {
	for o := 0; o < len(row); o += 4 {
		sum := row[o+3]
		if sum > holeEpsilon {
			inv := 1 / sum
			row[o] *= inv
			row[o+1] *= inv
			row[o+2] *= inv
			row[o+3] = alpha(sum)
		} else {
			row[o], row[o+1], row[o+2], row[o+3] = 0, 0, 0, 0
		}
	}
}

// fillHoles fills the holes of row y whose CoC channel ch in cocRow is
// positive.
func fillHoles(img *surface.Image, y int, cocRow []float32, ch int) {
	pix := img.Pix()
	w := img.Width()
	row := img.Row(y)
	for x := 0; x < w; x++ {
		o := 4 * x
		if row[o+3] > 0 || cocRow[2*x+ch] <= 0 {
			continue
		}
		var r, g, b, wsum float32
		for j := -1; j <= 1; j++ {
			for i := -1; i <= 1; i++ {
				q := img.ClampedOffset(x+i, y+j)
				a := pix[q+3]
				if a <= 0 {
					continue
				}
				r += pix[q] * a
				g += pix[q+1] * a
				b += pix[q+2] * a
				wsum += a
			}
		}
		if wsum > 0 {
			row[o] = r / wsum
			row[o+1] = g / wsum
			row[o+2] = b / wsum
		}
	}
}

// upsampleTaps holds the clamped source indices and weights of one
// destination coordinate.
type upsampleTaps struct {
	idx [4]int
	w   *[4]float32
}

func buildUpsampleTaps(dst, src int) []upsampleTaps {
	taps := make([]upsampleTaps, dst)
	for k := range taps {
		phase := k % 2
		first := k/2 - 2 + phase
		for i := range 4 {
			taps[k].idx[i] = mathx.Clamp(first+i, 0, src-1)
		}
		taps[k].w = &cubicUpsampleWeights[phase]
	}
	return taps
}

// upsample accumulates the first len(dst) channels of img at (tx, ty).
func upsample(img *surface.Image, tx, ty *upsampleTaps, dst []float32) {
	clear(dst)
	pix := img.Pix()
	ch := img.Channels()
	w := img.Width()
	for j, sy := range ty.idx {
		wy := ty.w[j]
		base := sy * w
		for i, sx := range tx.idx {
			wgt := tx.w[i] * wy
			o := (base + sx) * ch
			for c := range dst {
				dst[c] += pix[o+c] * wgt
			}
		}
	}
}

// runComposite upsamples the fields and blends them over the full
// resolution color into the output.
func runComposite(p *passParams, d *parallel.Dispatcher) {
	color := p.color
	coc := p.slot(SlotCoC)
	raw := p.slot(SlotCoCRaw)
	blur := p.slot(SlotCoCPong)
	nearField := p.slot(SlotNearField)
	farField := p.slot(SlotFarField)
	out := p.out
	w, h := out.Width(), out.Height()
	R := p.coc.MaxRadius
	blend := p.blend

	xs := buildUpsampleTaps(w, raw.Width())
	ys := buildUpsampleTaps(h, raw.Height())
	cpix, kpix := color.Pix(), coc.Pix()

	d.Rows(h, func(y0, y1 int) {
		var rawUp, blurUp [1]float32
		var near, far [4]float32
		for y := y0; y < y1; y++ {
			orow := out.Row(y)
			ty := &ys[y]
			for x := 0; x < w; x++ {
				ci := color.Offset(x, y)
				src := cpix[ci : ci+4]
				dst := orow[4*x : 4*x+4]

				farAlpha := mathx.Smoothstep(alphaLow, alphaHigh, R*kpix[coc.Offset(x, y)+1])

				upsample(raw, &xs[x], ty, rawUp[:])
				upsample(blur, &xs[x], ty, blurUp[:])
				var nearAlpha float32
				if s := mathx.Smoothstep(alphaLow, alphaHigh, R*max(blurUp[0], rawUp[0])); s > 0 {
					upsample(nearField, &xs[x], ty, near[:])
					nearAlpha = mathx.Saturate(near[3]) * s
				}

				if blend == 0 || (farAlpha == 0 && nearAlpha == 0) {
					copy(dst, src)
					continue
				}
				if farAlpha > 0 {
					upsample(farField, &xs[x], ty, far[:])
				}
				for c := 0; c < 3; c++ {
					e := src[c]
					if farAlpha > 0 {
						e = mathx.Lerp(e, max(far[c], 0), farAlpha)
					}
					if nearAlpha > 0 {
						e = mathx.Lerp(e, max(near[c], 0), nearAlpha)
					}
					dst[c] = src[c]*(1-blend) + e*blend
				}
				dst[3] = src[3]
			}
		}
	})
}
