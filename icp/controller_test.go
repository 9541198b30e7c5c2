package icp

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/linalg"
	"github.com/kwv/icp3d/pointset"
)

// densePointsWithOutwardNormals builds a point set laid out on a regular
// perFace x perFace grid on each of the 6 faces of the cube [-1,1]^3, each
// with the face's outward normal, giving the
// matcher enough spread to reject and reweight meaningfully.
func densePointsWithOutwardNormals(perFace int) ([]r3.Vector, []r3.Vector) {
	faces := []r3.Vector{
		{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
	}
	var positions, normals []r3.Vector
	for _, n := range faces {
		u := r3.Vector{X: n.Y, Y: n.Z, Z: n.X}
		v := n.Cross(u)
		for i := 0; i < perFace; i++ {
			for j := 0; j < perFace; j++ {
				a := (float64(i)/float64(perFace-1))*1.6 - 0.8
				b := (float64(j)/float64(perFace-1))*1.6 - 0.8
				p := n.Add(u.Mul(a)).Add(v.Mul(b))
				positions = append(positions, p)
				normals = append(normals, n)
			}
		}
	}
	return positions, normals
}

func TestAlignAutoRecoversTranslation(t *testing.T) {
	pos1, norm1 := densePointsWithOutwardNormals(6)
	set1 := pointset.NewWithNormals(pos1, norm1)

	trueOffset := r3.Vector{X: 0.08, Y: -0.04, Z: 0.02}
	pos2 := make([]r3.Vector, len(pos1))
	for i, p := range pos1 {
		pos2[i] = p.Sub(trueOffset)
	}
	set2 := pointset.NewWithNormals(pos2, norm1)

	cfg := DefaultConfig()
	cfg.MaxIters = 40
	cfg.FinalIters = 2

	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, cfg, Rigid)
	if rms < 0 {
		t.Fatalf("expected AlignAuto to succeed, got failure sentinel")
	}

	// xf2 maps set2-local into set1's frame; applying it to a set2 point
	// should land close to the corresponding set1 point.
	recovered := xf2.Apply(pos2[0])
	if recovered.Sub(pos1[0]).Norm() > 0.2 {
		t.Errorf("recovered alignment off by %.4f, want small residual", recovered.Sub(pos1[0]).Norm())
	}
}

func TestAlignAutoFailsWithNoOverlap(t *testing.T) {
	pos1, norm1 := densePointsWithOutwardNormals(4)
	set1 := pointset.NewWithNormals(pos1, norm1)

	farOffset := r3.Vector{X: 500, Y: 500, Z: 500}
	pos2 := make([]r3.Vector, len(pos1))
	for i, p := range pos1 {
		pos2[i] = p.Add(farOffset)
	}
	set2 := pointset.NewWithNormals(pos2, norm1)

	cfg := DefaultConfig()
	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, cfg, Rigid)
	if rms != FailureSentinel {
		t.Errorf("expected FailureSentinel for non-overlapping sets, got %f", rms)
	}
}

func TestAlignAutoHandlesPointCloudMode(t *testing.T) {
	pos1, _ := densePointsWithOutwardNormals(5)
	set1 := pointset.New(pos1) // PointCloud: true, normals estimated on demand

	trueOffset := r3.Vector{X: 0.03, Y: 0.0, Z: -0.02}
	pos2 := make([]r3.Vector, len(pos1))
	for i, p := range pos1 {
		pos2[i] = p.Sub(trueOffset)
	}
	set2 := pointset.New(pos2)

	cfg := DefaultConfig()
	cfg.MaxIters = 40

	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, cfg, Rigid)
	if rms < 0 {
		t.Fatalf("expected point-cloud mode alignment to succeed, got failure sentinel")
	}
	if math.IsNaN(rms) {
		t.Fatalf("rms is NaN")
	}
}

func TestAlignAutoRecoversSimilarityScale(t *testing.T) {
	pos1, norm1 := densePointsWithOutwardNormals(6)
	set1 := pointset.NewWithNormals(pos1, norm1)

	const trueScale = 1.15
	pos2 := make([]r3.Vector, len(pos1))
	for i, p := range pos1 {
		pos2[i] = p.Mul(1 / trueScale)
	}
	// A uniform scale about the origin leaves normal directions unchanged.
	set2 := pointset.NewWithNormals(pos2, norm1)

	cfg := DefaultConfig()
	cfg.MaxIters = 40
	cfg.FinalIters = 2

	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, cfg, Similarity)
	if rms < 0 {
		t.Fatalf("expected similarity alignment to succeed, got failure sentinel")
	}

	recovered := xf2.Apply(pos2[0])
	if recovered.Sub(pos1[0]).Norm() > 0.25 {
		t.Errorf("recovered similarity alignment off by %.4f, want small residual", recovered.Sub(pos1[0]).Norm())
	}

	// The recovered linear part should scale a probe vector by roughly
	// trueScale, exercising align.go's applyPostHocScale path
	// (spec.md §4.5 "Post-hoc scale").
	probe := xf2.Apply(r3.Vector{X: 1, Y: 0, Z: 0}).Sub(xf2.Apply(r3.Vector{}))
	if math.Abs(probe.Norm()-trueScale) > 0.25 {
		t.Errorf("recovered scale %.4f, want roughly %.4f", probe.Norm(), trueScale)
	}
}

func TestAlignAutoRecoversAffineAnisotropicScale(t *testing.T) {
	pos1, norm1 := densePointsWithOutwardNormals(6)
	set1 := pointset.NewWithNormals(pos1, norm1)

	const sx, sy, sz = 1.3, 0.9, 1.05
	pos2 := make([]r3.Vector, len(pos1))
	for i, p := range pos1 {
		pos2[i] = r3.Vector{X: p.X / sx, Y: p.Y / sy, Z: p.Z / sz}
	}
	// Normals are left as set1's; applyPostHocAffine derives its correction
	// from position covariances alone, so an exact per-axis normal isn't
	// required to pull the two sets together.
	set2 := pointset.NewWithNormals(pos2, norm1)

	cfg := DefaultConfig()
	cfg.MaxIters = 60
	cfg.FinalIters = 2

	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, cfg, Affine)
	if rms < 0 {
		t.Fatalf("expected affine alignment to succeed, got failure sentinel")
	}

	// Exercises align.go's applyPostHocAffine path (spec.md §4.5/§9): check
	// that several probe points land close to their set1 counterparts once
	// the anisotropic correction is applied.
	for _, i := range []int{0, len(pos1) / 3, len(pos1) / 2} {
		recovered := xf2.Apply(pos2[i])
		if d := recovered.Sub(pos1[i]).Norm(); d > 0.35 {
			t.Errorf("vertex %d: recovered affine alignment off by %.4f, want small residual", i, d)
		}
	}
}

func TestAlignAutoEmptySetFails(t *testing.T) {
	set1 := pointset.New(nil)
	set2 := pointset.New(nil)
	xf1 := linalg.Identity()
	xf2 := linalg.Identity()

	rms := AlignAuto(set1, set2, xf1, &xf2, 0, DefaultConfig(), Rigid)
	if rms != FailureSentinel {
		t.Errorf("expected FailureSentinel for empty point sets, got %f", rms)
	}
}
