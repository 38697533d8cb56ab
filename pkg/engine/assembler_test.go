package engine

import "testing"

func TestBalancedObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"open brace only", "{", false},
		{"empty object", "{}", true},
		{"simple object", `{"a":1}`, true},
		{"unclosed", `{"a":1`, false},
		{"unopened", `"a":1}`, false},
		{"nested", `{"a":{"b":2}}`, true},
		{"nested unclosed", `{"a":{"b":2}`, false},
		{"brace in string", `{"a":"}"}`, true},
		{"open brace in string", `{"a":"{"}`, true},
		{"escaped quote", `{"a":"say \"hi\""}`, true},
		{"escaped backslash then quote", `{"a":"x\\"}`, true},
		{"unterminated string", `{"a":"oops}`, false},
		{"balanced before end", `{}{"a":1}`, false},
		{"trailing garbage", `{"a":1} `, false},
		{"array not object", `[1,2,3]`, false},
		{"bare scalar", `42`, false},
		{"negative depth", `}{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := balancedObject(tt.in); got != tt.want {
				t.Errorf("balancedObject(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTryParseArgs(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		args, diag := tryParseArgs(`{"location":"Paris","unit":"celsius"}`)
		if diag != nil {
			t.Fatalf("unexpected diagnostic: %v", diag)
		}
		if args["location"] != "Paris" {
			t.Errorf("location = %v, want Paris", args["location"])
		}
	})

	t.Run("balanced but unparseable", func(t *testing.T) {
		// Braces balance, content between them is not valid JSON.
		args, diag := tryParseArgs(`{"a" 1}`)
		if args != nil {
			t.Errorf("args = %v, want nil", args)
		}
		if diag == nil || diag.Code != DiagArgsParseError {
			t.Fatalf("diag = %v, want code %s", diag, DiagArgsParseError)
		}
	})

	t.Run("non-object value", func(t *testing.T) {
		args, diag := tryParseArgs(`[1,2]`)
		if args != nil {
			t.Errorf("args = %v, want nil", args)
		}
		if diag == nil || diag.Code != DiagArgsNotObject {
			t.Fatalf("diag = %v, want code %s", diag, DiagArgsNotObject)
		}
	})

	t.Run("idempotent on identical input", func(t *testing.T) {
		first, d1 := tryParseArgs(`{"n":1}`)
		second, d2 := tryParseArgs(`{"n":1}`)
		if d1 != nil || d2 != nil {
			t.Fatalf("unexpected diagnostics: %v, %v", d1, d2)
		}
		if first["n"] != second["n"] {
			t.Errorf("identical input produced different results: %v vs %v", first, second)
		}
	})
}

func TestSnippetTruncation(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	got := snippet(string(long))
	if len(got) != 123 {
		t.Errorf("len(snippet) = %d, want 123", len(got))
	}
	if got[120:] != "..." {
		t.Errorf("snippet does not end with ellipsis: %q", got[115:])
	}
	if snippet("short") != "short" {
		t.Errorf("short input must pass through unchanged")
	}
}
