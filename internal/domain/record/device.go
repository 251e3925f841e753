package record

import "strings"

// Device classes.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

var (
	mobileTokens = []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"}
	tabletTokens = []string{"ipad", "tablet", "playbook", "silk"}
)

// DeviceType classifies a user agent. Mobile tokens win over tablet tokens.
func DeviceType(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}
	ua := strings.ToLower(userAgent)
	switch {
	case containsAny(ua, mobileTokens):
		return DeviceMobile
	case containsAny(ua, tabletTokens):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
