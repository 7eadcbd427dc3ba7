// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"errors"
	"net/http"

	"golang.org/x/text/language"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// RespondError maps core error kinds to HTTP problem responses. The detail
// text comes from the shared boundary catalog so it stays localizable.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	lang := requestLanguage(r)
	detail := shared.UserSafeMessage(lang, err)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, shared.ErrInactiveActor):
		Problem(w, http.StatusUnprocessableEntity, "Inactive Actor", detail)
	case errors.Is(err, shared.ErrNotStarted):
		Problem(w, http.StatusConflict, "Not Started", detail)
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", detail)
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", detail)
	}
}

func requestLanguage(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}
