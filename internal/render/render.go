// Package render draws pose skeletons and judging overlays onto video frames.
package render

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/vaultjudge/internal/pose"
	"github.com/ayusman/vaultjudge/internal/vault"
)

var (
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	yellow = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	green  = color.RGBA{R: 0, G: 255, B: 0, A: 0}

	limbColor  = color.RGBA{R: 245, G: 117, B: 66, A: 0}
	jointColor = color.RGBA{R: 245, G: 66, B: 230, A: 0}
)

const (
	overlayScale     = 2.0
	overlayThickness = 2
	limbThickness    = 2
	jointRadius      = 4
)

// Bones are the skeleton segments drawn between required joints.
var Bones = [][2]pose.Joint{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow},
	{pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow},
	{pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip},
	{pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee},
	{pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee},
	{pose.RightKnee, pose.RightAnkle},
}

// Text is one overlay string and where to draw it.
type Text struct {
	Content   string
	Origin    image.Point
	Font      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
}

func overlay(content string, origin image.Point, c color.RGBA) Text {
	return Text{
		Content:   content,
		Origin:    origin,
		Font:      gocv.FontHersheyPlain,
		Scale:     overlayScale,
		Color:     c,
		Thickness: overlayThickness,
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Layout returns the overlay texts for a classified frame. Phase and deduction texts
// are anchored to the torso centre; the layout failure notice sits at a fixed position.
func Layout(r vault.Result) []Text {
	cx, cy := int(r.Torso.X), int(r.Torso.Y)
	at := func(dx, dy int) image.Point { return image.Pt(cx+dx, cy+dy) }

	texts := []Text{overlay(r.Label, at(30, -80), r.Color)}

	if v, ok := r.Deduction(vault.BentKnees); ok {
		texts = append(texts, overlay("Bent knees: "+formatValue(v), at(30, -30), white))
	}
	if v, ok := r.Deduction(vault.LegSeparation); ok {
		texts = append(texts, overlay("Leg Separation: "+formatValue(v), at(30, 0), cyan))
	}
	if v, ok := r.Deduction(vault.ShoulderAngle); ok {
		texts = append(texts, overlay("Shoulder angle: "+formatValue(v), at(30, 30), white))
	}
	if v, ok := r.Deduction(vault.BodyAlignment); ok {
		texts = append(texts, overlay("Body alignment: "+formatValue(v), at(30, 30), white))
	}
	if v, ok := r.Deduction(vault.LayoutFailure); ok {
		texts = append(texts,
			overlay("Failure to maintain", image.Pt(640, 90), white),
			overlay("layout(pike down):", image.Pt(640, 130), white),
			overlay(formatValue(v), image.Pt(640, 170), yellow),
		)
	}

	if r.Label != "" {
		texts = append(texts, Text{
			Content:   r.Label,
			Origin:    image.Pt(50, 50),
			Font:      gocv.FontHersheySimplex,
			Scale:     1,
			Color:     green,
			Thickness: 2,
		})
	}

	return texts
}

// DrawSkeleton draws the bones and joints of lm.
func DrawSkeleton(img *gocv.Mat, lm pose.LandmarkSet) {
	for _, bone := range Bones {
		a, aok := lm[bone[0]]
		b, bok := lm[bone[1]]
		if !aok || !bok {
			continue
		}
		gocv.Line(img, point(a), point(b), limbColor, limbThickness)
	}

	for _, j := range pose.RequiredJoints {
		if p, ok := lm[j]; ok {
			gocv.Circle(img, point(p), jointRadius, jointColor, -1)
		}
	}
}

// Annotate draws the skeleton and the judging overlay for one frame.
func Annotate(img *gocv.Mat, lm pose.LandmarkSet, r vault.Result) {
	DrawSkeleton(img, lm)
	for _, t := range Layout(r) {
		if t.Content == "" {
			continue
		}
		gocv.PutTextWithParams(img, t.Content, t.Origin, t.Font, t.Scale, t.Color, t.Thickness, gocv.LineAA, false)
	}
}

func point(p pose.Point3D) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
