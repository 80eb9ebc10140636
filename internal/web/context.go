package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Path parameters are identifiers issued by this service or by the event
// platform. All of them are UUIDs.

func eventIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "eventID")
	if err := validation.Validate(id, validation.Required, is.UUID); err != nil {
		return "", fmt.Errorf("invalid event id %q: %w", id, err)
	}
	return id, nil
}

// uuidParam validates the named parameter and returns notFound if it is
// not a UUID, since no such resource can exist.
func uuidParam(r *http.Request, name string, notFound error) (string, error) {
	id := chi.URLParam(r, name)
	if err := validation.Validate(id, validation.Required, is.UUID); err != nil {
		return "", fmt.Errorf("%w: %s", notFound, id)
	}
	return id, nil
}
