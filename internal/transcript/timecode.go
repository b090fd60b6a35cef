package transcript

import (
	"fmt"
	"math"
	"strings"
)

// srtTimecode renders seconds as HH:MM:SS,mmm. Hours are unbounded,
// milliseconds are three digits, the decimal separator is a comma.
func srtTimecode(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) / 60) % 60
	rendered := fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, math.Mod(seconds, 60))
	return strings.Replace(rendered, ".", ",", 1)
}

// vttTimecode renders seconds as MM:SS.mmm. Minutes are unbounded, there
// is no hour field, the decimal separator is a period.
func vttTimecode(seconds float64) string {
	return fmt.Sprintf("%02d:%06.3f", int(seconds)/60, math.Mod(seconds, 60))
}
