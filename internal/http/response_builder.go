package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events announced through HX-Trigger. Dashboard sections
// listen for them to refresh themselves.
const (
	EventLedgerSaved        = "ledger:saved"
	EventGoalsChanged       = "goals:changed"
	EventInvestmentCreated  = "investment:created"
	EventFormReset          = "form:reset"
	EventShowNotification   = "show-notification"
	notificationDurationOK  = 3000
	notificationDurationErr = 5000
)

// HTMXResponseBuilder assembles a status, headers, HX-Trigger events and an
// HTML body, then writes them in one go.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional detail to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *HTMXResponseBuilder) TriggerLedgerSaved(date string) *HTMXResponseBuilder {
	return b.Trigger(EventLedgerSaved, map[string]string{"date": date})
}

func (b *HTMXResponseBuilder) TriggerGoalsChanged(goalID string) *HTMXResponseBuilder {
	return b.Trigger(EventGoalsChanged, map[string]string{"id": goalID})
}

func (b *HTMXResponseBuilder) TriggerInvestmentCreated(name string) *HTMXResponseBuilder {
	return b.Trigger(EventInvestmentCreated, map[string]string{"name": name})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventShowNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, notificationDurationOK)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, notificationDurationErr)
}

// Redirect asks HTMX to load url as a full page.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message, escaped, in the shared error fragment.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError answers inline validation failures.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func UnauthorizedError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "Please sign in again.").Redirect("/")
}

// InternalServerError also raises an error toast, since HTMX does not swap
// 5xx bodies.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message).TriggerErrorNotification(message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// Placeholder stands in for a section whose upstream failed. It answers 200
// so the rest of the page keeps working.
func Placeholder(section, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		BodyHTML(`<div class="placeholder" data-section="` + template.HTMLEscapeString(section) + `">` +
			template.HTMLEscapeString(message) + `</div>`)
}
