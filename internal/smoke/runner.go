// Package smoke drives a running Radiologix server through every public
// endpoint and checks the responses. It only talks HTTP, so it works the
// same against a local process or a deployment.
package smoke

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// A 1x1 PNG.
const samplePNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// StepError reports the first step that did not behave as expected.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type scanReport struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	ScanType string `json:"scan_type"`
	AIReport string `json:"ai_report"`
}

type Runner struct {
	base   string
	client *http.Client
	log    *slog.Logger
}

// NewRunner targets baseURL, the server root without the /api suffix.
func NewRunner(baseURL string, client *http.Client, log *slog.Logger) *Runner {
	if client == nil {
		client = http.DefaultClient
	}
	return &Runner{base: strings.TrimRight(baseURL, "/"), client: client, log: log}
}

type state struct {
	email    string
	password string
	userID   string
	token    string
	scanID   string
}

// Run executes every step in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	st := &state{
		email:    fmt.Sprintf("smoke-%s@example.com", uuid.NewString()[:8]),
		password: "SmokeTest123!",
	}

	steps := []struct {
		name string
		fn   func(context.Context, *state) error
	}{
		{"root", r.root},
		{"health", r.health},
		{"register", r.register},
		{"duplicate register", r.duplicateRegister},
		{"wrong password", r.wrongPassword},
		{"login", r.login},
		{"current user", r.me},
		{"no token", r.noToken},
		{"tampered token", r.tamperedToken},
		{"create scan", r.createScan},
		{"list scans", r.listScans},
		{"get scan", r.getScan},
		{"unknown scan", r.unknownScan},
	}

	for _, s := range steps {
		if err := s.fn(ctx, st); err != nil {
			r.log.Error("smoke step failed", "step", s.name, "err", err)
			return &StepError{Step: s.name, Err: err}
		}
		r.log.Info("smoke step passed", "step", s.name)
	}
	return nil
}

func (r *Runner) root(ctx context.Context, _ *state) error {
	env, _, err := r.do(ctx, http.MethodGet, "/api/", nil, "", "", http.StatusOK)
	if err != nil {
		return err
	}
	if !strings.Contains(env.Message, "Radiologix") {
		return fmt.Errorf("unexpected banner %q", env.Message)
	}
	return nil
}

func (r *Runner) health(ctx context.Context, _ *state) error {
	env, _, err := r.do(ctx, http.MethodGet, "/api/health", nil, "", "", http.StatusOK)
	if err != nil {
		return err
	}
	var h struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &h); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if h.Status != "healthy" {
		return fmt.Errorf("status %q", h.Status)
	}
	return nil
}

func (r *Runner) registerBody(st *state) []byte {
	b, _ := json.Marshal(map[string]string{
		"email":    st.email,
		"name":     "Smoke Test",
		"password": st.password,
	})
	return b
}

func (r *Runner) register(ctx context.Context, st *state) error {
	env, _, err := r.do(ctx, http.MethodPost, "/api/auth/register", r.registerBody(st), "application/json", "", http.StatusCreated)
	if err != nil {
		return err
	}
	var id identity
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}
	if id.ID == "" || id.Email != st.email {
		return fmt.Errorf("unexpected identity %+v", id)
	}
	st.userID = id.ID
	return nil
}

func (r *Runner) duplicateRegister(ctx context.Context, st *state) error {
	_, _, err := r.do(ctx, http.MethodPost, "/api/auth/register", r.registerBody(st), "application/json", "", http.StatusConflict)
	return err
}

func (r *Runner) loginBody(email, password string) []byte {
	b, _ := json.Marshal(map[string]string{"email": email, "password": password})
	return b
}

func (r *Runner) wrongPassword(ctx context.Context, st *state) error {
	_, _, err := r.do(ctx, http.MethodPost, "/api/auth/login", r.loginBody(st.email, st.password+"x"), "application/json", "", http.StatusUnauthorized)
	return err
}

func (r *Runner) login(ctx context.Context, st *state) error {
	env, _, err := r.do(ctx, http.MethodPost, "/api/auth/login", r.loginBody(st.email, st.password), "application/json", "", http.StatusOK)
	if err != nil {
		return err
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(env.Data, &tok); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		return fmt.Errorf("unexpected token response %+v", tok)
	}
	st.token = tok.AccessToken
	return nil
}

func (r *Runner) me(ctx context.Context, st *state) error {
	env, _, err := r.do(ctx, http.MethodGet, "/api/auth/me", nil, "", st.token, http.StatusOK)
	if err != nil {
		return err
	}
	var id identity
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}
	if id.Email != st.email || id.ID != st.userID {
		return fmt.Errorf("got %s (%s), want %s (%s)", id.Email, id.ID, st.email, st.userID)
	}
	return nil
}

func (r *Runner) noToken(ctx context.Context, _ *state) error {
	_, hdr, err := r.do(ctx, http.MethodGet, "/api/auth/me", nil, "", "", http.StatusUnauthorized)
	if err != nil {
		return err
	}
	if hdr.Get("WWW-Authenticate") != "Bearer" {
		return fmt.Errorf("missing WWW-Authenticate header")
	}
	return nil
}

func (r *Runner) tamperedToken(ctx context.Context, st *state) error {
	parts := strings.Split(st.token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("token has %d segments", len(parts))
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("decode signature: %v", err)
	}
	sig[0] ^= 0xff
	forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	_, _, err = r.do(ctx, http.MethodGet, "/api/auth/me", nil, "", forged, http.StatusUnauthorized)
	return err
}

func (r *Runner) createScan(ctx context.Context, st *state) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("scan_type", "X-Ray")
	_ = mw.WriteField("image_data", "data:image/png;base64,"+samplePNG)
	if err := mw.Close(); err != nil {
		return err
	}

	env, _, err := r.do(ctx, http.MethodPost, "/api/scans", buf.Bytes(), mw.FormDataContentType(), st.token, http.StatusCreated)
	if err != nil {
		return err
	}
	var rep scanReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		return fmt.Errorf("decode scan: %w", err)
	}
	if rep.ID == "" || rep.UserID != st.userID || rep.ScanType != "X-Ray" || rep.AIReport == "" {
		return fmt.Errorf("unexpected scan %+v", rep)
	}
	st.scanID = rep.ID
	return nil
}

func (r *Runner) listScans(ctx context.Context, st *state) error {
	env, _, err := r.do(ctx, http.MethodGet, "/api/scans", nil, "", st.token, http.StatusOK)
	if err != nil {
		return err
	}
	var reps []scanReport
	if err := json.Unmarshal(env.Data, &reps); err != nil {
		return fmt.Errorf("decode scans: %w", err)
	}
	for _, rep := range reps {
		if rep.ID == st.scanID {
			return nil
		}
	}
	return fmt.Errorf("scan %s not listed", st.scanID)
}

func (r *Runner) getScan(ctx context.Context, st *state) error {
	env, _, err := r.do(ctx, http.MethodGet, "/api/scans/"+st.scanID, nil, "", st.token, http.StatusOK)
	if err != nil {
		return err
	}
	var rep scanReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		return fmt.Errorf("decode scan: %w", err)
	}
	if rep.ID != st.scanID {
		return fmt.Errorf("got scan %s, want %s", rep.ID, st.scanID)
	}
	return nil
}

func (r *Runner) unknownScan(ctx context.Context, st *state) error {
	_, _, err := r.do(ctx, http.MethodGet, "/api/scans/"+uuid.NewString(), nil, "", st.token, http.StatusNotFound)
	return err
}

// do sends one request and checks the status code.
func (r *Runner) do(ctx context.Context, method, path string, body []byte, contentType, token string, want int) (*envelope, http.Header, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, rd)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != want {
		return nil, resp.Header, fmt.Errorf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, want, bytes.TrimSpace(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.Header, fmt.Errorf("decode response: %w", err)
	}
	return &env, resp.Header, nil
}
