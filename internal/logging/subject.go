package logging

import "strings"

// FormatSubject builds the asset/step subject string used in console output.
func FormatSubject(asset, step string) string {
	asset = strings.TrimSpace(asset)
	step = strings.TrimSpace(step)
	switch {
	case asset != "" && step != "":
		return asset + " · " + step
	case asset != "":
		return asset
	default:
		return step
	}
}
