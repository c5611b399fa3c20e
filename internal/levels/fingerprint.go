package levels

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"signal-engine/internal/market"
)

// Fingerprint identifies the inputs Evaluate would compute levels from: the
// configuration, the reference bar and the swing the Fibonacci grid is drawn
// on. Two calls with equal fingerprints produce the same LevelSet.
func (c *Calculator) Fingerprint(ref market.Bar, swing market.Window) string {
	lookback := c.cfg.SwingLookback
	if lookback <= 0 {
		lookback = len(swing)
	}
	tail := swing.Tail(lookback)
	high, low, _, _ := tail.Extremes()

	buf := make([]byte, 0, 256)
	buf = append(buf, string(c.cfg.Method)...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(lookback))
	buf = appendFloats(buf, c.cfg.RetracementRatios...)
	buf = append(buf, '|')
	buf = appendFloats(buf, c.cfg.ExtensionRatios...)
	buf = append(buf, '|')
	buf = appendFloats(buf, ref.Open, ref.High, ref.Low, ref.Close, high, low)
	buf = append(buf, string(SwingTrend(tail))...)

	return strconv.FormatUint(xxhash.Sum64(buf), 16)
}

func appendFloats(buf []byte, vs ...float64) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}
