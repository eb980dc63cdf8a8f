package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerModalShow().Trigger("bill:saved", map[string]string{"id": "k1"}).Write(w)

	trigger := w.Header().Get(HeaderHXTrigger)
	for _, part := range []string{`"modal:show"`, `"bill:saved"`, `"id":"k1"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_NoTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Write(w)
	if w.Header().Get(HeaderHXTrigger) != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadGateway, `<script>alert("x")</script>`).Write(w)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}

func TestRedirect(t *testing.T) {
	tests := []struct {
		name       string
		htmx       bool
		wantCode   int
		wantHeader string
		wantValue  string
	}{
		{"htmx", true, http.StatusOK, HeaderHXRedirect, "/bills"},
		{"browser", false, http.StatusSeeOther, "Location", "/bills"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/bills/new", nil)
			if tt.htmx {
				r.Header.Set(HeaderHXRequest, "true")
			}
			w := httptest.NewRecorder()
			redirect(w, r, "/bills")
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get(tt.wantHeader); got != tt.wantValue {
				t.Fatalf("%s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}
