package jsonapi

// DocumentBuilder assembles a Document.
type DocumentBuilder struct {
	doc Document
}

// NewDocument starts an empty document.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// DataResource makes r the primary data.
func (b *DocumentBuilder) DataResource(r Resource) *DocumentBuilder {
	b.doc.Data = r
	return b
}

// DataCollection makes resources the primary data. Nil renders as [].
func (b *DocumentBuilder) DataCollection(resources []Resource) *DocumentBuilder {
	if resources == nil {
		resources = []Resource{}
	}
	b.doc.Data = resources
	return b
}

// Errors replaces any data with errs.
func (b *DocumentBuilder) Errors(errs ...Error) *DocumentBuilder {
	b.doc.Data = nil
	b.doc.Errors = errs
	return b
}

// Meta sets one top-level meta entry.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// Self records the URL the document was served from.
func (b *DocumentBuilder) Self(url string) *DocumentBuilder {
	if url == "" {
		return b
	}
	b.doc.Links = &Links{Self: url}
	return b
}

// Build returns the document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// ResourceBuilder assembles a Resource.
type ResourceBuilder struct {
	r Resource
}

// NewResource starts a resource of type typ identified by id.
func NewResource(typ, id string) *ResourceBuilder {
	return &ResourceBuilder{r: Resource{Type: typ, ID: id, Attributes: map[string]any{}}}
}

// Attr sets an attribute. "id" and "type" live on the resource itself and
// are dropped.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	switch key {
	case "id", "type":
	default:
		b.r.Attributes[key] = value
	}
	return b
}

// Build returns the resource.
func (b *ResourceBuilder) Build() Resource {
	return b.r
}
