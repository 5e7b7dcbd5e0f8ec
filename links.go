package authd

import (
	"net/url"
	"strings"
)

// Action links either point at the API itself or, when the frontend passes
// its own clientUrl, at the frontend page that will forward the token.

func buildLink(baseURL, endpoint, token, clientURL string) string {
	if clientURL != "" {
		return strings.TrimRight(clientURL, "/") + "?token=" + url.QueryEscape(token)
	}
	return strings.TrimRight(baseURL, "/") + "/api/auth/" + endpoint + "?token=" + url.QueryEscape(token)
}

func verificationLink(baseURL, token, clientURL string) string {
	return buildLink(baseURL, "verify-email", token, clientURL)
}

func loginConfirmLink(baseURL, token, clientURL string) string {
	return buildLink(baseURL, "confirm-login", token, clientURL)
}
