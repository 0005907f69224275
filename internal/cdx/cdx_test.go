package cdx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

const tokenResponse = `<?xml version="1.0"?>
<Envelope xmlns="http://schemas.xmlsoap.org/soap/envelope/">
  <Body>
    <CreateSecurityTokenResponse>
      <return>opaque-naas-token</return>
    </CreateSecurityTokenResponse>
  </Body>
</Envelope>`

const faultResponse = `<?xml version="1.0"?>
<Envelope xmlns="http://schemas.xmlsoap.org/soap/envelope/">
  <Body>
    <Fault>
      <faultcode>Client</faultcode>
      <faultstring>Invalid credential</faultstring>
    </Fault>
  </Body>
</Envelope>`

func TestNAASClient_CreateSecurityToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
			t.Errorf("Content-Type = %q, want text/xml", ct)
		}
		w.Write([]byte(tokenResponse))
	}))
	defer srv.Close()

	c := NewNAASClient(srv.URL, "app", "secret", 5*time.Second)
	got, err := c.CreateSecurityToken(context.Background(), "userId=alice")
	if err != nil {
		t.Fatalf("CreateSecurityToken: %v", err)
	}
	if got != "opaque-naas-token" {
		t.Errorf("token = %q, want opaque-naas-token", got)
	}
}

func TestNAASClient_FaultIsAuthorityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(faultResponse))
	}))
	defer srv.Close()

	c := NewNAASClient(srv.URL, "app", "secret", 5*time.Second)
	err := c.Authenticate(context.Background(), "alice", "wrong")
	if !errors.Is(err, token.ErrUpstreamAuthority) {
		t.Errorf("error = %v, want ErrUpstreamAuthority", err)
	}
	if err == nil || !strings.Contains(err.Error(), "Invalid credential") {
		t.Errorf("fault detail missing from %v", err)
	}
}

func TestNAASClient_TimeoutIsTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(tokenResponse))
	}))
	defer srv.Close()

	c := NewNAASClient(srv.URL, "app", "secret", 20*time.Millisecond)
	_, err := c.CreateSecurityToken(context.Background(), "userId=alice")
	if !errors.Is(err, token.ErrUpstreamTimeout) {
		t.Errorf("error = %v, want ErrUpstreamTimeout", err)
	}
}

func TestRegisterClient_FacilitiesForUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "alice" {
			t.Errorf("userId = %q, want alice", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"facId":1,"orisCode":3,"facilityName":"Barry","roles":["Preparer"]}]`))
	}))
	defer srv.Close()

	c := NewRegisterClient(srv.URL, 5*time.Second)
	facs, err := c.FacilitiesForUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FacilitiesForUser: %v", err)
	}
	if len(facs) != 1 || facs[0].Name != "Barry" || facs[0].Roles[0] != "Preparer" {
		t.Errorf("unexpected facilities: %+v", facs)
	}
}

func TestRegisterClient_DeterminePolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token" {
			t.Errorf("Authorization = %q, want Bearer svc-token", got)
		}
		w.Write([]byte(`{"policy":"_signin","userId":"alice"}`))
	}))
	defer srv.Close()

	c := NewRegisterClient(srv.URL, 5*time.Second)
	res, err := c.DeterminePolicy(context.Background(), "alice", "svc-token")
	if err != nil {
		t.Fatalf("DeterminePolicy: %v", err)
	}
	if res.Policy != "_signin" || res.UserID != "alice" {
		t.Errorf("unexpected policy result: %+v", res)
	}
}

func TestRegisterClient_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewRegisterClient(srv.URL, 5*time.Second)
	_, err := c.FacilitiesForUser(context.Background(), "alice")
	if !errors.Is(err, token.ErrUpstreamAuthority) {
		t.Errorf("error = %v, want ErrUpstreamAuthority", err)
	}
}
