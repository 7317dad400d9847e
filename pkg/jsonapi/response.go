package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes doc with the JSON:API content type.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes r as the primary data.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewDocument().DataResource(r).Build())
}

// WriteCollection writes resources served from self, with optional meta.
func WriteCollection(w http.ResponseWriter, status int, self string, resources []Resource, meta Meta) {
	b := NewDocument().DataCollection(resources).Self(self)
	for k, v := range meta {
		b.Meta(k, v)
	}
	WriteDocument(w, status, b.Build())
}

// WriteError writes an error document. The first error decides the status;
// no errors at all is a 500.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, NewDocument().Errors(errs...).Build())
}

// WriteBadRequest writes a single 400 error.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, ErrBadRequest(detail))
}
