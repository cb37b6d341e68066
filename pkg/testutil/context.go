package testutil

import (
	"net/http"

	id "prospector/pkg/domain"
	"prospector/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request context, the way
// the authentication middleware does for a valid bearer token.
func WithCaller(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithBearer sets the Authorization header to a bearer token.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
