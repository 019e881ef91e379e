package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/v1/accounts/1101":           "/v1/accounts/:code",
		"/v1/accounts/1101/extra":     "/v1/accounts/1101/extra",
		"/v1/accounts/1101/deactivate": "/v1/accounts/:code/deactivate",
		"/v1/parties/p1":              "/v1/parties/:id",
		"/v1/batches/abc":             "/v1/batches/:id",
		"/v1/batches/abc/allocate":    "/v1/batches/:id/allocate",
		"/v1/batches/abc/lock":        "/v1/batches/:id/lock",
		"/v1/batches/abc/quantity":    "/v1/batches/:id/quantity",
		"/v1/journal/entries":         "/v1/journal/entries",
		"/v1/journal/entries/x":       "/v1/journal/entries/:id",
		"/v1/journal/entries/x/reverse": "/v1/journal/entries/:id/reverse",
		"/v1/ledger?account=1101":     "/v1/ledger",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
