package submissions

import "testing"

func TestNormalizeUsername(t *testing.T) {
	cases := map[string]string{"-": "", "": "", "ali": "@ali", "@ali": "@ali", " @@ali ": "@ali"}
	for in, want := range cases {
		if got := NormalizeUsername(in); got != want {
			t.Fatalf("NormalizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseNameOrg(t *testing.T) {
	if n, o, ok := ParseNameOrg(" نیما |  شرکت "); !ok || n != "نیما" || o != "شرکت" {
		t.Fatalf("got %q %q %v", n, o, ok)
	}
	for _, in := range []string{"نیما", "| شرکت", "نیما |"} {
		if _, _, ok := ParseNameOrg(in); ok {
			t.Fatalf("ParseNameOrg(%q) accepted", in)
		}
	}
}
