package x11

import (
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
)

// ARGBDepth is the depth of every off-screen overlay surface.
const ARGBDepth = 32

// RootEventMask is selected on the root window and on every preview window.
const RootEventMask = xproto.EventMaskSubstructureNotify |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion

// Formats holds the two picture formats compositing needs.
type Formats struct {
	// ARGB is a 32-bit direct format with an alpha channel.
	ARGB render.Pictformat
	// RGB matches the root depth and has no alpha.
	RGB render.Pictformat
}

// ForDepth picks the format matching a source window's depth. A 24-bit source
// read through an ARGB picture has garbage in its alpha channel.
func (f Formats) ForDepth(depth byte) render.Pictformat {
	if depth == ARGBDepth {
		return f.ARGB
	}
	return f.RGB
}

func selectFormats(infos []render.Pictforminfo, rootDepth byte) (Formats, error) {
	var f Formats
	var haveARGB, haveRGB bool
	for _, info := range infos {
		if info.Type != render.PictTypeDirect {
			continue
		}
		if !haveARGB && info.Depth == ARGBDepth && info.Direct.AlphaMask != 0 {
			f.ARGB = info.Id
			haveARGB = true
		}
		if !haveRGB && info.Depth == rootDepth && info.Direct.AlphaMask == 0 {
			f.RGB = info.Id
			haveRGB = true
		}
	}
	if !haveARGB {
		return Formats{}, fmt.Errorf("no ARGB picture format with depth %d", ARGBDepth)
	}
	if !haveRGB {
		return Formats{}, fmt.Errorf("no RGB picture format for root depth %d", rootDepth)
	}
	return f, nil
}

// ToFixed converts v to the 16.16 fixed point representation RENDER uses.
func ToFixed(v float64) render.Fixed {
	return render.Fixed(math.Round(v * 65536))
}

// ScaleTransform builds the transform that samples a src-sized picture into a
// dst-sized one. Only the diagonal is populated.
func ScaleTransform(srcW, srcH, dstW, dstH uint16) render.Transform {
	return render.Transform{
		Matrix11: ToFixed(float64(srcW) / float64(dstW)),
		Matrix22: ToFixed(float64(srcH) / float64(dstH)),
		Matrix33: ToFixed(1),
	}
}
