package jsonapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorBuilder(t *testing.T) {
	err := NewError(429, "QUOTA_EXCEEDED", "Quota Exceeded").
		Detailf("%d of %d used", 20, 20).
		ID("req-1").
		Parameter("identity").
		Meta("limit", 20).
		Build()

	if err.StatusCode() != 429 {
		t.Errorf("StatusCode = %d, want 429", err.StatusCode())
	}
	if err.Detail != "20 of 20 used" || err.ID != "req-1" {
		t.Errorf("err = %+v", err)
	}
	if err.Source == nil || err.Source.Parameter != "identity" {
		t.Errorf("Source = %+v", err.Source)
	}
	if err.Meta["limit"] != 20 {
		t.Errorf("Meta = %v", err.Meta)
	}
}

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    Error
		status int
		code   string
	}{
		{"bad request", ErrBadRequest("x"), 400, "bad_request"},
		{"invalid param", ErrInvalidParam("INVALID_INPUT", "limit", "bad"), 400, "INVALID_INPUT"},
		{"unauthorized", ErrUnauthorized("missing_service_key", "X-Service-Key").Build(), 401, "missing_service_key"},
		{"not found", ErrNotFound("plan"), 404, "not_found"},
		{"internal", ErrInternal(""), 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code != tt.code {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Detail == "" {
				t.Error("detail should not be empty")
			}
		})
	}

	if src := ErrInvalidParam("INVALID_INPUT", "limit", "bad").Source; src == nil || src.Parameter != "limit" {
		t.Errorf("invalid param source = %+v", src)
	}
	if src := ErrUnauthorized("invalid_service_key", "X-Service-Key").Build().Source; src == nil || src.Header != "X-Service-Key" {
		t.Errorf("unauthorized source = %+v", src)
	}
}

func TestWriteResource(t *testing.T) {
	w := httptest.NewRecorder()
	r := NewResource("plans", "FREE").Attr("max", 20).Attr("id", "ignored").Build()

	WriteResource(w, http.StatusOK, r)

	if w.Header().Get("Content-Type") != ContentType {
		t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
	}

	var doc struct {
		Data Resource `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if doc.Data.ID != "FREE" || doc.Data.Attributes["max"] != float64(20) {
		t.Errorf("data = %+v", doc.Data)
	}
	if _, ok := doc.Data.Attributes["id"]; ok {
		t.Error("id must not appear in attributes")
	}
}

func TestWriteCollection(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCollection(w, http.StatusOK, "/v1/usage/recent?limit=5", nil, Meta{"count": 0})

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if string(raw["data"]) != "[]" {
		t.Errorf("data = %s, want []", raw["data"])
	}
	if _, ok := raw["meta"]; !ok {
		t.Error("meta missing")
	}
	var links Links
	json.Unmarshal(raw["links"], &links)
	if links.Self != "/v1/usage/recent?limit=5" {
		t.Errorf("links = %s", raw["links"])
	}

	w = httptest.NewRecorder()
	WriteCollection(w, http.StatusOK, "", []Resource{{Type: "plans", ID: "FREE"}}, nil)
	var second map[string]json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &second)
	if _, ok := second["links"]; ok {
		t.Error("empty self should omit links")
	}
}

func TestWriteError(t *testing.T) {
	t.Run("status from first error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrNotFound("plan"), ErrInternal(""))

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", w.Code)
		}
		var doc Document
		json.Unmarshal(w.Body.Bytes(), &doc)
		if len(doc.Errors) != 2 {
			t.Errorf("errors = %d, want 2", len(doc.Errors))
		}
	})

	t.Run("no errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})

	t.Run("bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteBadRequest(w, "Invalid JSON body")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", w.Code)
		}
	})
}

func TestDocumentBuilder_ErrorsClearData(t *testing.T) {
	doc := NewDocument().DataResource(Resource{}).Errors(ErrInternal("")).Build()
	if doc.Data != nil {
		t.Error("Errors must clear Data")
	}
}
