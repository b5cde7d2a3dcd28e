package ssn

// maskedSentinel is returned for input that does not parse as a 13-digit
// resident registration number. Its shape matches the regular masked form
// so UI columns stay aligned.
const maskedSentinel = "******-*******"

// Mask returns the display form of a resident registration number: the
// 2-digit birth-year prefix and the last 4 digits stay visible, everything
// else is masked. At most 6 digits are ever visible.
func Mask(ssn string) string {
	digits := Normalize(ssn)
	if len(digits) != 13 {
		return maskedSentinel
	}
	return digits[:2] + "****-***" + digits[9:]
}
