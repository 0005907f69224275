// Package cdx holds clients for the external CDX/NAAS collaborators: the NAAS
// security token service (SOAP) and the CDX register service (REST). All calls
// are bounded by the configured timeout; timeouts surface as
// token.ErrUpstreamTimeout so callers never mistake "we don't know" for "we
// know it's invalid".
package cdx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

// NAASClient talks SOAP 1.1 to the NAAS security token service. It implements
// token.Authority and verifies user credentials for the auth orchestrator.
type NAASClient struct {
	endpoint  string
	appID     string
	appSecret string
	http      *http.Client
	timeout   time.Duration
}

// NewNAASClient returns a client for the NAAS endpoint authenticating
// service-to-service calls with the given application account.
func NewNAASClient(endpoint, appID, appSecret string, timeout time.Duration) *NAASClient {
	return &NAASClient{
		endpoint:  endpoint,
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: timeout},
		timeout:   timeout,
	}
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XMLNS   string   `xml:"xmlns:soap,attr"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Payload any `xml:",any"`
}

type soapResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *soapFault `xml:"Fault"`
		Inner rawBody    `xml:",any"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type rawBody struct {
	Return string `xml:"return"`
}

type authenticateRequest struct {
	XMLName  xml.Name `xml:"AuthenticateUser"`
	UserID   string   `xml:"userId"`
	Password string   `xml:"credential"`
	Method   string   `xml:"authenticationMethod"`
}

type createTokenRequest struct {
	XMLName xml.Name `xml:"CreateSecurityToken"`
	AppID   string   `xml:"trustee"`
	Secret  string   `xml:"credential"`
	Subject string   `xml:"subjectData"`
}

type validateTokenRequest struct {
	XMLName  xml.Name `xml:"ValidateSecurityToken"`
	AppID    string   `xml:"trustee"`
	Secret   string   `xml:"credential"`
	Token    string   `xml:"securityToken"`
	ClientIP string   `xml:"clientIp"`
}

// Authenticate verifies the user's password against NAAS. A SOAP fault is an
// authority error; the caller maps it to a generic auth failure.
func (c *NAASClient) Authenticate(ctx context.Context, userID, password string) error {
	_, err := c.call(ctx, authenticateRequest{UserID: userID, Password: password, Method: "password"})
	return err
}

// CreateSecurityToken asks NAAS to mint an opaque token carrying the given
// claim payload.
func (c *NAASClient) CreateSecurityToken(ctx context.Context, payload string) (string, error) {
	return c.call(ctx, createTokenRequest{AppID: c.appID, Secret: c.appSecret, Subject: payload})
}

// ValidateSecurityToken asks NAAS to validate a presented token. clientIP is
// forwarded so NAAS can bind tokens to their origin. Returns the claim payload
// NAAS originally signed.
func (c *NAASClient) ValidateSecurityToken(ctx context.Context, tok, clientIP string) (string, error) {
	return c.call(ctx, validateTokenRequest{AppID: c.appID, Secret: c.appSecret, Token: tok, ClientIP: clientIP})
}

// ServiceToken mints a service-to-service token for the application account
// itself, used when calling the CDX policy service.
func (c *NAASClient) ServiceToken(ctx context.Context) (string, error) {
	return c.CreateSecurityToken(ctx, "userId="+c.appID)
}

func (c *NAASClient) call(ctx context.Context, payload any) (string, error) {
	env := soapEnvelope{
		XMLNS: "http://schemas.xmlsoap.org/soap/envelope/",
		Body:  soapBody{Payload: payload},
	}
	body, err := xml.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", token.ErrUpstreamAuthority, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", token.ErrUpstreamAuthority, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", token.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", token.ErrUpstreamAuthority, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", token.ErrUpstreamAuthority, err)
	}

	var out soapResponseEnvelope
	if err := xml.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: bad envelope: %v", token.ErrUpstreamAuthority, err)
	}
	if out.Body.Fault != nil {
		return "", fmt.Errorf("%w: fault %s: %s", token.ErrUpstreamAuthority, out.Body.Fault.Code, out.Body.Fault.String)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", token.ErrUpstreamAuthority, resp.StatusCode)
	}
	return out.Body.Inner.Return, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
