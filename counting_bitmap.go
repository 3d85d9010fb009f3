package spill

import (
	"fmt"

	"github.com/kelindar/bitmap"
)

// CountingBitmap tallies how many trees voted for each candidate point.
// Layer i holds the points seen in more than i leaf sets, so the deepest
// sufficiently-populated layer is the most-agreed-upon candidate pool.
type CountingBitmap struct {
	bms []bitmap.Bitmap
	buf bitmap.Bitmap
}

func NewCountingBitmap(maxCount int) *CountingBitmap {
	return &CountingBitmap{
		bms: make([]bitmap.Bitmap, maxCount),
	}
}

func (c *CountingBitmap) cardinalities() []int {
	cards := make([]int, len(c.bms))
	for i, it := range c.bms {
		cards[i] = it.Count()
	}
	return cards
}

func (c *CountingBitmap) String() string {
	return fmt.Sprint(c.cardinalities())
}

// Or folds one tree's candidate leaf set into the counts.
func (c *CountingBitmap) Or(in bitmap.Bitmap) {
	in.Clone(&c.buf)
	cur := c.buf
	for i := 0; i < len(c.bms); i++ {
		c.bms[i].Xor(cur)
		cur.AndNot(c.bms[i])
		c.bms[i].Or(cur)
		if cur.Count() == 0 {
			break
		}
	}
}

// TopK returns the deepest layer still holding at least k candidates.
// It may return more than k.
func (c *CountingBitmap) TopK(k int) bitmap.Bitmap {
	for i := len(c.bms) - 1; i >= 0; i-- {
		if i != 0 && c.bms[i].Count() < k {
			continue
		}
		return c.bms[i]
	}
	return nil
}
