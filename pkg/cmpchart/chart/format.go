package chart

import "strconv"

// FormatAxisLabel renders a percent axis value: positive values get a
// " + " prefix, others keep their own sign. 5 -> " + 5%", -3 -> "-3%".
func FormatAxisLabel(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', -1, 64) + "%"
	if v > 0 {
		return " + " + s
	}
	return s
}

// FormatterJS is the browser-side twin of FormatAxisLabel.
const FormatterJS = `function () { return (this.value > 0 ? ' + ' : '') + this.value + '%'; }`
