package marionette

import "encoding/binary"

// Scale3x enlarges an RGBA buffer three times with the Scale3x (AdvMAME3x)
// edge rule: each output block copies a neighbor's color where two
// neighbors meet along a diagonal, otherwise the source pixel. Edges clamp.
func Scale3x(pix []byte, width, height int) []byte {
	at := func(x, y int) uint32 {
		x = min(max(x, 0), width-1)
		y = min(max(y, 0), height-1)
		i := (y*width + x) * 4
		return binary.LittleEndian.Uint32(pix[i : i+4])
	}
	ow := width * 3
	out := make([]byte, ow*height*3*4)
	put := func(x, y int, c uint32) {
		i := (y*ow + x) * 4
		binary.LittleEndian.PutUint32(out[i:i+4], c)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a, b, c := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			d, e, f := at(x-1, y), at(x, y), at(x+1, y)
			g, h, i := at(x-1, y+1), at(x, y+1), at(x+1, y+1)

			block := [9]uint32{e, e, e, e, e, e, e, e, e}
			if b != h && d != f {
				if d == b {
					block[0] = d
				}
				if (d == b && e != c) || (b == f && e != a) {
					block[1] = b
				}
				if b == f {
					block[2] = f
				}
				if (d == b && e != g) || (d == h && e != a) {
					block[3] = d
				}
				if (b == f && e != i) || (h == f && e != c) {
					block[5] = f
				}
				if d == h {
					block[6] = d
				}
				if (d == h && e != i) || (h == f && e != g) {
					block[7] = h
				}
				if h == f {
					block[8] = f
				}
			}
			for k, col := range block {
				put(x*3+k%3, y*3+k/3, col)
			}
		}
	}
	return out
}
