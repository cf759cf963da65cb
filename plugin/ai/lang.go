package ai

import "unicode"

// DetectLanguage returns "zh" when the text contains CJK code points,
// otherwise "en".
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return "zh"
		}
	}
	return "en"
}
