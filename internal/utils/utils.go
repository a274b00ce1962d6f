package utils

// Value dereferences v, returning the zero value when v is nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// ToStringSlice filters a loosely typed list down to its string members.
// Provider metadata lists arrive as []any after JSON decoding; anything that
// is not a string is silently dropped.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// FirstNonEmpty returns the first value that is not the empty string.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
