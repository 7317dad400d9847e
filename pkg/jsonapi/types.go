// Package jsonapi renders imgquota responses as JSON:API documents.
package jsonapi

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a top-level response body. Data and Errors never appear together.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   Meta    `json:"meta,omitempty"`
	Links  *Links  `json:"links,omitempty"`
}

// Resource is one typed object: a decision, a plan, a ledger entry or a window.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Links holds the document's own URL.
type Links struct {
	Self string `json:"self,omitempty"`
}

// Error is one entry of an error document.
type Error struct {
	ID     string       `json:"id,omitempty"` // request id
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   Meta         `json:"meta,omitempty"`
}

// ErrorSource names the query parameter or header a client got wrong.
type ErrorSource struct {
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

// Meta is free-form metadata.
type Meta map[string]any
