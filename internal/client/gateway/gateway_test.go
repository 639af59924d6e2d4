package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// roundTripperFunc lets tests mock the http.Client transport.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

type staticCreds string

func (s staticCreds) Token() string { return string(s) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDo_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		respStatus  int
		respBody    string
		respErr     error
		wantKind    Kind
		wantMessage string
	}{
		{
			name:     "transport failure",
			respErr:  errors.New("connection refused"),
			wantKind: KindNetworkError,
		},
		{
			name:        "401 with message",
			respStatus:  401,
			respBody:    `{"error":true,"message":"Email or Password is incorrect"}`,
			wantKind:    KindUnauthorized,
			wantMessage: "Email or Password is incorrect",
		},
		{
			name:       "403",
			respStatus: 403,
			respBody:   `{}`,
			wantKind:   KindForbidden,
		},
		{
			name:        "400 with message",
			respStatus:  400,
			respBody:    `{"message":"OTP is required"}`,
			wantKind:    KindBadRequest,
			wantMessage: "OTP is required",
		},
		{
			name:       "409 falls into bad request",
			respStatus: 409,
			respBody:   `{"message":"email already registered"}`,
			wantKind:   KindBadRequest,
		},
		{
			name:        "500 with message",
			respStatus:  500,
			respBody:    `{"message":"boom"}`,
			wantKind:    KindServerError,
			wantMessage: "boom",
		},
		{
			name:       "non-JSON error body",
			respStatus: 502,
			respBody:   "Bad Gateway",
			wantKind:   KindServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(func(req *http.Request) (*http.Response, error) {
				if tt.respErr != nil {
					return nil, tt.respErr
				}
				return jsonResponse(tt.respStatus, tt.respBody), nil
			})
			c := New("http://example.com", client, staticCreds(""), zap.NewNop())

			err := c.SendVerifyOTP(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			var ge *Error
			if !errors.As(err, &ge) {
				t.Fatalf("expected *gateway.Error, got %T: %v", err, err)
			}
			if ge.Kind != tt.wantKind {
				t.Errorf("kind = %v; want %v", ge.Kind, tt.wantKind)
			}
			if tt.wantMessage != "" && ge.Message != tt.wantMessage {
				t.Errorf("message = %q; want %q", ge.Message, tt.wantMessage)
			}
		})
	}
}

func TestDo_AttachesCredentialHeaders(t *testing.T) {
	var gotAuth, gotRequestID string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotRequestID = req.Header.Get("X-Request-Id")
		return jsonResponse(200, `true`), nil
	})
	c := New("http://example.com", client, staticCreds("tok-123"), zap.NewNop())

	if _, err := c.CheckSession(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q; want %q", gotAuth, "Bearer tok-123")
	}
	if gotRequestID == "" {
		t.Error("expected an X-Request-Id header")
	}
}

func TestDo_NoBearerWhenTokenAbsent(t *testing.T) {
	var gotAuth string
	var hasAuth bool
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		_, hasAuth = req.Header["Authorization"]
		return jsonResponse(200, `true`), nil
	})
	c := New("http://example.com", client, staticCreds(""), zap.NewNop())

	if _, err := c.CheckSession(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasAuth {
		t.Errorf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestUnauthorizedHook_FiresOnlyForAuthedEndpoints(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"message":"nope"}`), nil
	})
	c := New("http://example.com", client, staticCreds(""), zap.NewNop())

	cleared := 0
	c.SetUnauthorizedHook(func() { cleared++ })

	// Login is a credential exchange; its 401 means bad credentials, not a
	// dead session.
	if _, err := c.Login(context.Background(), "a@b.com", "wrong"); !IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if cleared != 0 {
		t.Fatalf("hook fired %d times on login; want 0", cleared)
	}

	// Profile is authenticated; its 401 is a session death.
	if _, err := c.Profile(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if cleared != 1 {
		t.Fatalf("hook fired %d times on profile; want 1", cleared)
	}
}

func TestLogin_ParsesAuthResponse(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://example.com/login" {
			t.Errorf("unexpected URL: %s", req.URL)
		}
		if req.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", req.Method)
		}
		return jsonResponse(200, `{"email":"a@b.com","token":"jwt-abc"}`), nil
	})
	c := New("http://example.com", client, staticCreds(""), zap.NewNop())

	auth, err := c.Login(context.Background(), "a@b.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.Email != "a@b.com" || auth.Token != "jwt-abc" {
		t.Errorf("unexpected auth response: %+v", auth)
	}
}

func TestLogin_MalformedSuccessBody(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `not-json`), nil
	})
	c := New("http://example.com", client, staticCreds(""), zap.NewNop())

	_, err := c.Login(context.Background(), "a@b.com", "secret")
	if !IsKind(err, KindServerError) {
		t.Fatalf("expected ServerError for malformed payload, got %v", err)
	}
}

func TestSendResetOTP_EmailTravelsAsQueryParam(t *testing.T) {
	var gotQuery string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/send-reset-otp" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		gotQuery = req.URL.Query().Get("email")
		return jsonResponse(200, ``), nil
	})
	c := New("http://example.com", client, staticCreds(""), zap.NewNop())

	if err := c.SendResetOTP(context.Background(), "a+b@c.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "a+b@c.com" {
		t.Errorf("email = %q; want %q", gotQuery, "a+b@c.com")
	}
}
