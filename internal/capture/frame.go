package capture

import (
	"image"

	"gocv.io/x/gocv"
)

// ScaledSize returns the size of a frame scaled to height, keeping the aspect ratio.
// The width is truncated.
func ScaledSize(size image.Point, height int) image.Point {
	if size.Y <= 0 || height <= 0 {
		return size
	}
	return image.Pt(int(float64(size.X)*float64(height)/float64(size.Y)), height)
}

// Prepare mirrors the frame horizontally when flip is set and resizes it to height.
// It returns a new Mat owned by the caller; src is left untouched.
func Prepare(src *gocv.Mat, flip bool, height int) gocv.Mat {
	out := gocv.NewMat()
	if flip {
		gocv.Flip(*src, &out, 1)
	} else {
		src.CopyTo(&out)
	}

	size := ScaledSize(image.Pt(out.Cols(), out.Rows()), height)
	if size.X != out.Cols() || size.Y != out.Rows() {
		resized := gocv.NewMat()
		gocv.Resize(out, &resized, size, 0, 0, gocv.InterpolationLinear)
		out.Close()
		out = resized
	}

	return out
}
