package models

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given integer.
func IntPtr(i int) *int {
	return &i
}
