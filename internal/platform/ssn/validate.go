package ssn

// checksumWeights are applied to digits 0..11 of a resident registration
// number; the check digit is (11 - weightedSum mod 11) mod 10.
var checksumWeights = [12]int{2, 3, 4, 5, 6, 7, 8, 9, 2, 3, 4, 5}

// Normalize strips everything but digits from a candidate resident
// registration number.
func Normalize(candidate string) string {
	out := make([]byte, 0, len(candidate))
	for i := 0; i < len(candidate); i++ {
		if candidate[i] >= '0' && candidate[i] <= '9' {
			out = append(out, candidate[i])
		}
	}
	return string(out)
}

// Validate reports whether the candidate is a well-formed Korean resident
// registration number: exactly 13 digits once separators are stripped, a
// plausible birth month and day, and a correct weighted checksum. This is
// the validity gate run before any encrypt, hash, or persist operation.
func Validate(candidate string) bool {
	digits := Normalize(candidate)
	if len(digits) != 13 {
		return false
	}

	month := int(digits[2]-'0')*10 + int(digits[3]-'0')
	day := int(digits[4]-'0')*10 + int(digits[5]-'0')
	if month < 1 || month > 12 {
		return false
	}
	if day < 1 || day > 31 {
		return false
	}

	sum := 0
	for i := 0; i < 12; i++ {
		sum += int(digits[i]-'0') * checksumWeights[i]
	}
	check := (11 - sum%11) % 10

	return check == int(digits[12]-'0')
}
