package session

import "strings"

// Tablet markers are checked before mobile markers: common tablet user
// agents ("iPad", Android tablets) also satisfy the generic mobile patterns,
// so the order of the two checks is load-bearing.
var tabletMarkers = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var mobileMarkers = []string{
	"mobile", "iphone", "ipod", "android",
	"blackberry", "iemobile", "opera mini", "webos",
}

// Classify maps a user-agent string to a coarse device category. It is a
// pure function; an empty or unrecognized string classifies as desktop.
func Classify(userAgent string) Category {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return CategoryDesktop
	}

	for _, marker := range tabletMarkers {
		if strings.Contains(ua, marker) {
			return CategoryTablet
		}
	}
	// Android without "Mobile" is an Android tablet.
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return CategoryTablet
	}

	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return CategoryMobile
		}
	}

	return CategoryDesktop
}
