package oidc

import "net/url"

// PostRequest is the form the upstream identity provider posts back to the
// redirect endpoint after the authorization step.
type PostRequest struct {
	State            string `json:"state"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// PostResult is the outcome of validating an IdP post-back.
type PostResult struct {
	IsValid bool   `json:"isValid"`
	UserID  string `json:"userId"`
	Policy  string `json:"policy"`
	// Code and Description carry the IdP's own error verbatim (URL-decoded)
	// when the provider reported a failure.
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// ValidatePostRequest short-circuits on an IdP-reported error, surfacing the
// provider's code and description; otherwise it validates the signed state.
func (p *StateProtocol) ValidatePostRequest(req PostRequest) PostResult {
	if req.Error != "" {
		return PostResult{
			Code:        urlDecode(req.Error),
			Description: urlDecode(req.ErrorDescription),
		}
	}
	res := p.ValidateState(req.State)
	return PostResult{IsValid: res.IsValid, UserID: res.UserID, Policy: res.Policy}
}

// urlDecode best-effort unescapes IdP error strings, falling back to the raw
// value when the escaping is itself broken.
func urlDecode(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}
