package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/internal/bookings"
	pkgauth "github.com/prestalink/prestalink-backend/pkg/auth"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

type stubBookings struct {
	getFn func(ctx context.Context, bookingID uuid.UUID) (*models.InstantBooking, error)
}

func (s *stubBookings) Create(context.Context, bookings.CreateBookingInput) (*bookings.CreateBookingResult, error) {
	return nil, nil
}
func (s *stubBookings) ConfirmPayment(context.Context, string) (*models.InstantBooking, error) {
	return nil, nil
}
func (s *stubBookings) Confirm(context.Context, uuid.UUID, uuid.UUID) error  { return nil }
func (s *stubBookings) Start(context.Context, uuid.UUID, uuid.UUID) error    { return nil }
func (s *stubBookings) Complete(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubBookings) Cancel(context.Context, bookings.CancelInput) (*models.InstantBooking, error) {
	return nil, nil
}
func (s *stubBookings) MarkNoShow(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubBookings) SweepNoShows(context.Context, int) (int, error)         { return 0, nil }
func (s *stubBookings) ReconcilePayments(context.Context, int) (int, error)    { return 0, nil }
func (s *stubBookings) FailPayment(context.Context, string, string) error      { return nil }
func (s *stubBookings) RecordRefund(context.Context, string, int64) error      { return nil }
func (s *stubBookings) Get(ctx context.Context, bookingID uuid.UUID) (*models.InstantBooking, error) {
	if s.getFn != nil {
		return s.getFn(ctx, bookingID)
	}
	return nil, nil
}
func (s *stubBookings) ListForClient(context.Context, uuid.UUID, pagination.Params) ([]models.InstantBooking, error) {
	return nil, nil
}
func (s *stubBookings) ListForPrestataire(context.Context, uuid.UUID, pagination.Params) ([]models.InstantBooking, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "prestalink-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(t *testing.T, bookingSvc bookings.Service) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	return NewRouter(testConfig(), logg, nil, nil, bookingSvc, nil, nil, nil, nil, nil, nil, nil, nil, nil)
}

func mintToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(t, &stubBookings{})

	for _, path := range []string{"/health/live", "/api/public/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, w.Code)
		}
	}
}

func TestAuthedRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter(t, &stubBookings{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPrestataireRoutesRejectClients(t *testing.T) {
	router := newTestRouter(t, &stubBookings{})
	token := mintToken(t, testConfig(), uuid.New(), enums.ActorRoleClient)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+uuid.NewString()+"/confirm", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestBookingDetailServesOwner(t *testing.T) {
	clientID := uuid.New()
	bookingID := uuid.New()
	svc := &stubBookings{
		getFn: func(_ context.Context, id uuid.UUID) (*models.InstantBooking, error) {
			return &models.InstantBooking{
				ID:       id,
				ClientID: clientID,
			}, nil
		},
	}
	router := newTestRouter(t, svc)
	token := mintToken(t, testConfig(), clientID, enums.ActorRoleClient)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+bookingID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data struct {
			Booking json.RawMessage
		}
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}
