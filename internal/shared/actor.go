package shared

import (
	"net/http"
	"strconv"
	"strings"
)

// CurrentUserID resolves the authenticated user id from the request session.
// Returns 0 when the request is anonymous.
func CurrentUserID(r *http.Request) int64 {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
