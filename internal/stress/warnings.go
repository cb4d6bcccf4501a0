package stress

// #region warnings
// Warnings returns the status-bar warnings for a stability value. Bands are checked from
// the most severe down; stability of 50 or more carries no warning.
func Warnings(stability float64) []string {
	switch {
	case stability < 10:
		return []string{"CATASTROPHIC FAILURE", "POINT OF NO RETURN"}
	case stability < 20:
		return []string{"IMMINENT COLLAPSE", "SYSTEM UNSTABLE"}
	case stability < 30:
		return []string{"CRITICAL STRESS"}
	case stability < 50:
		return []string{"HIGH STRESS DETECTED"}
	default:
		return []string{}
	}
}

// StabilityColor returns the display color for a stability value.
func StabilityColor(stability float64) string {
	switch {
	case stability > 70:
		return "#00ff00"
	case stability > 40:
		return "#ffff00"
	case stability > 20:
		return "#ff9900"
	default:
		return "#ff0000"
	}
}

// #endregion warnings
