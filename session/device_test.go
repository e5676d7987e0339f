package session

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want Category
	}{
		{
			name: "ipad is tablet even though it matches mobile patterns",
			ua:   "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
			want: CategoryTablet,
		},
		{
			name: "android without mobile is tablet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 Safari/537.36",
			want: CategoryTablet,
		},
		{
			name: "kindle silk is tablet",
			ua:   "Mozilla/5.0 (Linux; U; Android 4.4.3; KFTHWI) Silk/3.1",
			want: CategoryTablet,
		},
		{
			name: "android phone is mobile",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Mobile Safari/537.36",
			want: CategoryMobile,
		},
		{
			name: "iphone is mobile",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			want: CategoryMobile,
		},
		{
			name: "windows desktop",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
			want: CategoryDesktop,
		},
		{
			name: "empty string is desktop",
			ua:   "",
			want: CategoryDesktop,
		},
		{
			name: "unrecognized agent is desktop",
			ua:   "curl/8.5.0",
			want: CategoryDesktop,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.ua); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.ua, got, tc.want)
			}
		})
	}
}
