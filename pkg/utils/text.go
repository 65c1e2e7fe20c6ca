package utils

// Truncate returns s cut to maxLen bytes with "..." appended if it was cut.
// Used to keep query strings short in log output.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
