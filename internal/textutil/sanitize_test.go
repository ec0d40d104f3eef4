package textutil

import "testing"

func TestSafeID(t *testing.T) {
	cases := []struct{ in, want string }{
		{
			in:   "products__ncanimate__ereefs__gbr4_v2__temp-wind-salt-current_hourly/products__ncanimate__ereefs__gbr4_v2__temp-wind-salt-current_hourly_map_hourly_2010-09-01_00h00_qld_-1.5",
			want: "products__ncanimate__ereefs__gbr4_v2__temp-wind-salt-current_hourly/products__ncanimate__ereefs__gbr4_v2__temp-wind-salt-current_hourly_map_hourly_2010-09-01_00h00_qld_-1_5",
		},
		{in: "downloads__ereefs__gbr4_v2/gbr4_simple_2014-12.nc", want: "downloads__ereefs__gbr4_v2/gbr4_simple_2014-12_nc"},
		{in: "already_safe-id", want: "already_safe-id"},
		{in: "with space", want: "with_space"},
	}
	for _, tc := range cases {
		if got := SafeID(tc.in); got != tc.want {
			t.Fatalf("SafeID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if IsSafeID("a.b") || !IsSafeID("a_b") {
		t.Fatal("IsSafeID mismatch")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(" GBR4 v2/Temp "); got != "gbr4_v2_temp" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("..."); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("torres_strait"); got != "Torres Strait" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := Title(""); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}
