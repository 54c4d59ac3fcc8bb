// Package stringutil provides small string helpers for terminal output.
package stringutil

// MiddleEllipsis shortens a string to a maximum number of runes by cutting
// out the middle and splicing in "...". Both ends stay visible, which suits
// filesystem paths where the leaf segment is the identifying part:
//
//	/home/user/projects/demo/public -> /home/user/pr.../demo/public
//
// Strings at or under the limit come back unchanged. If maxLength is 3 or
// less there is no room for the ellipsis and the string is simply cut.
func MiddleEllipsis(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	keep := maxLength - 3
	head := (keep + 1) / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
