package fetcher

import (
	"errors"
	"testing"
)

func TestCheckClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantBlocked bool
		wantStatus  bool
	}{
		{name: "forbidden", status: 403, wantBlocked: true},
		{name: "rate limited", status: 429, wantBlocked: true},
		{name: "unavailable", status: 503, wantBlocked: true},
		{name: "captcha lowercase", status: 200, body: "<html>please solve this captcha</html>", wantBlocked: true},
		{name: "captcha uppercase", status: 200, body: "<html>CAPTCHA required</html>", wantBlocked: true},
		{name: "perimeter challenge", status: 200, body: `<div id="px-captcha"></div>`, wantBlocked: true},
		{name: "interruption page", status: 200, body: "Pardon Our Interruption...", wantBlocked: true},
		{name: "clean page", status: 200, body: "<html><body>3 beds 2 baths</body></html>"},
		{name: "not found is transient", status: 404, body: "nope", wantStatus: true},
		{name: "server error is transient", status: 500, wantStatus: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(&Page{StatusCode: tc.status, Body: []byte(tc.body)})
			switch {
			case tc.wantBlocked:
				if !errors.Is(err, ErrBlocked) {
					t.Fatalf("Check = %v, want ErrBlocked", err)
				}
				var blocked *BlockedError
				if !errors.As(err, &blocked) {
					t.Fatalf("Check = %T, want *BlockedError", err)
				}
				if blocked.StatusCode != tc.status {
					t.Errorf("StatusCode = %d, want %d", blocked.StatusCode, tc.status)
				}
			case tc.wantStatus:
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("Check = %v, want *StatusError", err)
				}
				if errors.Is(err, ErrBlocked) {
					t.Error("status error must not match ErrBlocked")
				}
			default:
				if err != nil {
					t.Fatalf("Check = %v, want nil", err)
				}
			}
		})
	}
}

func TestCheckNilPage(t *testing.T) {
	if err := Check(nil); err == nil {
		t.Fatal("expected error for nil page")
	}
}
