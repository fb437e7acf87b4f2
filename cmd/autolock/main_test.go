package main

import "testing"

// ---------- webPortFlag ----------

func TestWebPortFlag_Default(t *testing.T) {
	w := &webPortFlag{val: 8080}
	if w.port() != 8080 {
		t.Errorf("port = %d, want 8080", w.port())
	}
	if w.String() != "8080" {
		t.Errorf("String = %q, want \"8080\"", w.String())
	}
}

func TestWebPortFlag_SetValid(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1", 1},
		{"8980", 8980},
		{"65535", 65535},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			w := &webPortFlag{val: 8080}
			if err := w.Set(tc.in); err != nil {
				t.Fatalf("Set(%q): %v", tc.in, err)
			}
			if w.port() != tc.want {
				t.Errorf("port = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_SetInvalid(t *testing.T) {
	cases := []string{"0", "-1", "65536", "http", ""}
	for _, in := range cases {
		t.Run("invalid_"+in, func(t *testing.T) {
			w := &webPortFlag{val: 8080}
			if err := w.Set(in); err == nil {
				t.Errorf("Set(%q): expected error", in)
			}
		})
	}
}
