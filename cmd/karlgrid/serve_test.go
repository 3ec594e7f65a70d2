package main

import "testing"

func TestRenderPort(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{":8080", ":8090"},
		{":9000", ":9010"},
		{"", ":8090"},
		{":not-a-port", ":8090"},
	}
	for _, c := range cases {
		if got := renderPort(c.in); got != c.want {
			t.Fatalf("renderPort(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
