package timeutil

import "testing"

func TestParseUnixSeconds(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"1700000000", true},
		{"", false},
		{"-5", false},
		{"12a", false},
		{"99999999999999999999", false},
	}
	for _, c := range cases {
		ts, ok := ParseUnixSeconds(c.in)
		if ok != c.ok {
			t.Errorf("ParseUnixSeconds(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if ok && ts.Unix() != 1700000000 {
			t.Errorf("unexpected time %v", ts)
		}
	}
}
