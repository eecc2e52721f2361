package product

// ValidProductID reports whether s is a well-formed product identifier.
// Every character must be an ASCII letter, digit, or underscore; the empty string is rejected.
// This is a PURE function.
func ValidProductID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// ValidField reports whether s is one of the allow-listed quick status fields.
// Matching is exact and case-sensitive.
// This is a PURE function.
func ValidField(s string) bool {
	switch s {
	case FieldSellPrice, FieldBuyPrice,
		FieldSellVolume, FieldBuyVolume,
		FieldSellOrders, FieldBuyOrders,
		FieldSellMovingWeek, FieldBuyMovingWeek:
		return true
	}
	return false
}
