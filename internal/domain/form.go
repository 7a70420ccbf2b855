package domain

// Form category constants. Categories describe what a form is for and carry
// different submission-success weights in the scorer.
const (
	FormCategoryContact    = "contact"
	FormCategoryQuote      = "quote"
	FormCategorySupport    = "support"
	FormCategoryComment    = "comment"
	FormCategoryNewsletter = "newsletter"
	FormCategorySearch     = "search"
	FormCategoryLogin      = "login"
	FormCategoryUnknown    = "unknown"
)

// Integration type constants. These identify the mechanism that renders and
// receives the form; well-behaved integrations submit far more reliably than
// generic or third-party embedded widgets.
const (
	IntegrationContactForm7 = "contact-form-7"
	IntegrationWPForms      = "wpforms"
	IntegrationGravityForms = "gravity-forms"
	IntegrationNinjaForms   = "ninja-forms"
	IntegrationFormidable   = "formidable"
	IntegrationHTMLForm     = "html-form"
	IntegrationThirdParty   = "third-party"
	IntegrationUnknown      = "unknown"
)

// FormField describes a single input inside a discovered form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required"`
}

// FormDescriptor describes a submittable form discovered on a page.
// Descriptors are transient: produced by the crawler, consumed once by the
// scorer and executor, never persisted as rows.
type FormDescriptor struct {
	PageURL     string      `json:"page_url"`
	Action      string      `json:"action,omitempty"`
	Method      string      `json:"method,omitempty"`
	Category    string      `json:"category"`
	Integration string      `json:"integration"`
	Fields      []FormField `json:"fields"`
	IsIframe    bool        `json:"is_iframe"`
	HasCaptcha  bool        `json:"has_captcha"`
}

// RequiredFieldCount returns the number of required fields in the form.
func (f *FormDescriptor) RequiredFieldCount() int {
	count := 0
	for _, field := range f.Fields {
		if field.Required {
			count++
		}
	}
	return count
}

// HasFieldType returns true if any field matches the given input type.
func (f *FormDescriptor) HasFieldType(fieldType string) bool {
	for _, field := range f.Fields {
		if field.Type == fieldType {
			return true
		}
	}
	return false
}
