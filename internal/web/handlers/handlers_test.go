package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bintangula23/kindbox/config"
	"github.com/bintangula23/kindbox/internal/auth"
	"github.com/bintangula23/kindbox/internal/donation"
	"github.com/bintangula23/kindbox/internal/ratings"
	"github.com/bintangula23/kindbox/internal/store"
	"github.com/bintangula23/kindbox/internal/store/memory"
	"github.com/bintangula23/kindbox/internal/token"
	"github.com/bintangula23/kindbox/internal/users"
)

// stubVerifier accepts a fixed set of ID tokens.
type stubVerifier struct {
	identities map[string]*auth.Identity
}

func (v *stubVerifier) Verify(ctx context.Context, idToken string) (*auth.Identity, error) {
	id, ok := v.identities[idToken]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

type testEnv struct {
	router *chi.Mux
	store  *memory.Store
	tokens *token.Service
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := memory.New()
	donations := donation.New(mem, nil)
	ratingSvc := ratings.New(mem, donations)
	userSvc := users.New(mem, ratingSvc)
	tokens := token.New("test-key", "test", time.Hour)
	verifier := &stubVerifier{identities: map[string]*auth.Identity{
		"good-token": {UID: "uid-1", Email: "siti@example.com"},
	}}

	h := New(&config.Config{}, donations, userSvc, ratingSvc, verifier, tokens, nil)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/session", h.CreateSession)
		r.Get("/donations", h.ListDonations)
		r.Get("/donations/{id}", h.GetDonation)
		r.Get("/users/{id}", h.GetProfile)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))
			r.Post("/donations", h.CreateDonation)
			r.Post("/donations/{id}/interest", h.ExpressInterest)
			r.Post("/donations/{id}/verify", h.VerifyRecipient)
			r.Post("/donations/{id}/reject", h.RejectRecipient)
			r.Post("/ratings", h.SubmitRating)
			r.Post("/images/presign", h.PresignUpload)
		})
	})

	return &testEnv{router: r, store: mem, tokens: tokens}
}

func (e *testEnv) request(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		tok, err := e.tokens.Generate(userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedDonation(t *testing.T, id, owner string, remaining int, pending []string) {
	t.Helper()
	err := e.store.Set(context.Background(), store.Donations, id, store.Document{
		"userId":             owner,
		"title":              "Study desk",
		"location":           "Jakarta",
		"quantity":           remaining,
		"originalQuantity":   remaining,
		"interestedUserIds":  pending,
		"verifiedRecipients": []string{},
		"rejectedRecipients": []string{},
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t)
	rec := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSession(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, http.MethodPost, "/api/auth/session", "", map[string]string{
		"id_token": "good-token",
		"name":     "Siti",
		"username": "siti",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "uid-1", resp.User.ID)

	claims, err := env.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserID)
}

func TestCreateSessionBadToken(t *testing.T) {
	env := setupEnv(t)
	rec := env.request(t, http.MethodPost, "/api/auth/session", "", map[string]string{
		"id_token": "forged",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, http.MethodPost, "/api/donations", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/donations", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec2 := httptest.NewRecorder()
	env.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestCreateAndGetDonation(t *testing.T) {
	env := setupEnv(t)

	rec := env.request(t, http.MethodPost, "/api/donations", "uid-1", map[string]interface{}{
		"title":    "Study desk",
		"location": "Jakarta",
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	rec = env.request(t, http.MethodGet, "/api/donations/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateDonationInvalid(t *testing.T) {
	env := setupEnv(t)
	rec := env.request(t, http.MethodPost, "/api/donations", "uid-1", map[string]interface{}{
		"title": "No location",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDonationMissing(t *testing.T) {
	env := setupEnv(t)
	rec := env.request(t, http.MethodGet, "/api/donations/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpressInterestEndpoint(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "owner", 1, nil)

	rec := env.request(t, http.MethodPost, "/api/donations/d1/interest", "uid-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res donation.JoinResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.AlreadyInterested)
	assert.Equal(t, 1, res.TotalInterest)
}

func TestExpressInterestOwnListing(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "uid-1", 1, nil)

	rec := env.request(t, http.MethodPost, "/api/donations/d1/interest", "uid-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExpressInterestExhausted(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "owner", 0, nil)

	rec := env.request(t, http.MethodPost, "/api/donations/d1/interest", "uid-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyEndpointOwnerOnly(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "owner", 1, []string{"alice"})

	body := map[string]interface{}{"recipient_id": "alice"}

	rec := env.request(t, http.MethodPost, "/api/donations/d1/verify", "intruder", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/donations/d1/verify", "owner", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res donation.VerifyResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 0, res.NewRemaining)
	assert.Equal(t, 1, res.TotalInterest)
}

func TestVerifyEndpointConflicts(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "owner", 1, nil)

	// Not pending.
	rec := env.request(t, http.MethodPost, "/api/donations/d1/verify", "owner",
		map[string]interface{}{"recipient_id": "alice"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing recipient id.
	rec = env.request(t, http.MethodPost, "/api/donations/d1/verify", "owner",
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectEndpoint(t *testing.T) {
	env := setupEnv(t)
	env.seedDonation(t, "d1", "owner", 1, []string{"alice"})

	rec := env.request(t, http.MethodPost, "/api/donations/d1/reject", "owner",
		map[string]interface{}{"recipient_id": "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res donation.RejectResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1, res.TotalInterest)
}

func TestSubmitRatingEndpoint(t *testing.T) {
	env := setupEnv(t)
	require.NoError(t, env.store.Set(context.Background(), store.Donations, "d1", store.Document{
		"userId":             "owner",
		"title":              "Study desk",
		"location":           "Jakarta",
		"quantity":           0,
		"originalQuantity":   1,
		"interestedUserIds":  []string{},
		"verifiedRecipients": []string{"uid-1"},
		"rejectedRecipients": []string{},
	}))

	rec := env.request(t, http.MethodPost, "/api/ratings", "uid-1", map[string]interface{}{
		"donation_id": "d1",
		"value":       5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// A second rating for the same donation is rejected.
	rec = env.request(t, http.MethodPost, "/api/ratings", "uid-1", map[string]interface{}{
		"donation_id": "d1",
		"value":       3,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPresignUnconfigured(t *testing.T) {
	env := setupEnv(t)
	rec := env.request(t, http.MethodPost, "/api/images/presign", "uid-1", map[string]string{
		"filename": "photo.jpg",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProfileEndpoint(t *testing.T) {
	env := setupEnv(t)
	require.NoError(t, env.store.Set(context.Background(), store.Users, "uid-9", store.Document{
		"name":                   "Donor",
		"completedDonationCount": 12,
	}))

	rec := env.request(t, http.MethodGet, "/api/users/uid-9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile struct {
		GoodnessLevel int `json:"goodness_level"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, 3, profile.GoodnessLevel)
}

func TestDomainErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	domainError(rec, fmt.Errorf("backend exploded"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
