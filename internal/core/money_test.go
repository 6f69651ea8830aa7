package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"12.346", "12.35", true},
		{"0.01", "0.01", true},
		{"", "", false},
		{"abc", "", false},
		{"-5", "", false},
		{"+5", "", false},
		{"0", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: expected ok, got %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}
