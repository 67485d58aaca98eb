//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/handler/api"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/queries"
	"stayhub/tests/common/httptest"
	commandsmock "stayhub/tests/mock/commands"
	queriesmock "stayhub/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BookingHandlerTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockCtrl      *gomock.Controller
	mockBooking   *commandsmock.MockBookingCommands
	mockReconcile *commandsmock.MockReconcileCommands
	mockCancel    *commandsmock.MockCancelCommands
	mockQueries   *queriesmock.MockBookingQueries
	handler       *api.BookingHandler
	userID        uuid.UUID
}

func (s *BookingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockBooking = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.mockReconcile = commandsmock.NewMockReconcileCommands(s.mockCtrl)
	s.mockCancel = commandsmock.NewMockCancelCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockBookingQueries(s.mockCtrl)
	s.handler = api.NewBookingHandler(s.mockBooking, s.mockReconcile, s.mockCancel, s.mockQueries)

	s.userID = uuid.New()

	// Mock authentication middleware for testing
	authMiddleware := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("user_id", s.userID)
		c.Set("user_role", "guest")
		c.Next()
	}

	s.router.POST("/bookings", authMiddleware, s.handler.CreateBooking)
	s.router.GET("/bookings", authMiddleware, s.handler.GetUserBookings)
	s.router.GET("/bookings/:id", authMiddleware, s.handler.GetBooking)
	s.router.POST("/bookings/:id/confirm", authMiddleware, s.handler.ConfirmBooking)
	s.router.POST("/bookings/:id/cancel", authMiddleware, s.handler.CancelBooking)
}

func (s *BookingHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestBookingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

func validCreateBody() map[string]any {
	return map[string]any{
		"listing_id": uuid.NewString(),
		"check_in":   "2026-06-10",
		"check_out":  "2026-06-14",
		"guests":     2,
	}
}

func idempotencyHeader() map[string]string {
	return map[string]string{"Idempotency-Key": uuid.NewString()}
}

// ================================================================================
// TestCreateBooking
// ================================================================================

func (s *BookingHandlerTestSuite) TestCreateBooking() {
	url := "/bookings"

	s.Run("success: returns 201 Created with client secret", func() {
		result := &commands.CreateBookingResult{
			BookingID:    uuid.New(),
			ClientSecret: "pi_123_secret",
		}
		s.mockBooking.EXPECT().CreateBooking(gomock.Any(), gomock.Any(), s.userID, gomock.Any()).
			Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, validCreateBody(), "token", idempotencyHeader())

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(result.BookingID.String(), body["booking_id"])
		s.Equal("pi_123_secret", body["client_secret"])
		s.Equal("pending", body["status"])
	})

	s.Run("success: replayed request returns 200 OK", func() {
		result := &commands.CreateBookingResult{
			BookingID:    uuid.New(),
			ClientSecret: "pi_123_secret",
			IsReplayed:   true,
		}
		s.mockBooking.EXPECT().CreateBooking(gomock.Any(), gomock.Any(), s.userID, gomock.Any()).
			Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, validCreateBody(), "token", idempotencyHeader())

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(true, body["replayed"])
	})

	s.Run("error: 400 without Idempotency-Key header", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, validCreateBody(), "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "idempotency key")
	})

	s.Run("error: 400 on malformed dates", func() {
		body := validCreateBody()
		body["check_in"] = "June 10th"
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "token", idempotencyHeader())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "YYYY-MM-DD")
	})

	s.Run("error: 400 on missing fields", func() {
		body := validCreateBody()
		delete(body, "guests")
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "token", idempotencyHeader())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})

	s.Run("error: 401 without auth", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, validCreateBody(), "", idempotencyHeader())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "")
	})

	s.Run("error: command errors map to status codes", func() {
		cases := []struct {
			name       string
			err        error
			expectCode int
		}{
			{"listing not found", errs.ErrListingNotFound, http.StatusNotFound},
			{"invalid stay range", errs.ErrInvalidStayRange, http.StatusBadRequest},
			{"dates unavailable", errs.ErrOverlapConflict, http.StatusConflict},
			{"key reuse with different request", errs.ErrDuplicateBooking, http.StatusConflict},
			{"processor unavailable", errs.ErrProcessorUnavailable, http.StatusBadGateway},
			{"domain validation", errs.ErrDomainValidation, http.StatusUnprocessableEntity},
		}

		for _, tc := range cases {
			s.Run(tc.name, func() {
				s.mockBooking.EXPECT().CreateBooking(gomock.Any(), gomock.Any(), s.userID, gomock.Any()).
					Return(nil, tc.err).Times(1)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, validCreateBody(), "token", idempotencyHeader())
				httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "")
			})
		}
	})
}

// ================================================================================
// TestConfirmBooking
// ================================================================================

func (s *BookingHandlerTestSuite) TestConfirmBooking() {
	bookingID := uuid.New()
	url := "/bookings/" + bookingID.String() + "/confirm"

	s.Run("success: returns 200 with reconcile outcome", func() {
		result := &commands.ReconcileResult{
			Outcome:       commands.OutcomeApplied,
			BookingID:     bookingID,
			BookingStatus: booking.StatusConfirmed,
			PaymentStatus: payment.StatusSucceeded,
		}
		s.mockReconcile.EXPECT().ConfirmFromClient(gomock.Any(), bookingID, s.userID).
			Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("confirmed", body["booking_status"])
		s.Equal("applied", body["outcome"])
	})

	s.Run("error: 404 hides bookings of other users", func() {
		s.mockReconcile.EXPECT().ConfirmFromClient(gomock.Any(), bookingID, s.userID).
			Return(nil, errs.ErrNotOwner).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "")
	})

	s.Run("error: 409 on reconciliation mismatch", func() {
		s.mockReconcile.EXPECT().ConfirmFromClient(gomock.Any(), bookingID, s.userID).
			Return(nil, errs.ErrMismatch).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "")
	})

	s.Run("error: 400 on malformed booking id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/not-a-uuid/confirm", nil, "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})
}

// ================================================================================
// TestCancelBooking
// ================================================================================

func (s *BookingHandlerTestSuite) TestCancelBooking() {
	bookingID := uuid.New()
	url := "/bookings/" + bookingID.String() + "/cancel"

	s.Run("success: returns 200 with refund flag", func() {
		result := &commands.CancelResult{BookingID: bookingID, Refunded: true}
		s.mockCancel.EXPECT().Cancel(gomock.Any(), bookingID, commands.Actor{ID: s.userID, Role: "guest"}, "plans changed").
			Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			map[string]any{"reason": "plans changed"}, "token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("cancelled", body["status"])
		s.Equal(true, body["refunded"])
	})

	s.Run("success: body is optional", func() {
		result := &commands.CancelResult{BookingID: bookingID, Refunded: false}
		s.mockCancel.EXPECT().Cancel(gomock.Any(), bookingID, gomock.Any(), "").
			Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "token")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: command errors map to status codes", func() {
		cases := []struct {
			name       string
			err        error
			expectCode int
		}{
			{"not found", errs.ErrBookingNotFound, http.StatusNotFound},
			{"not owner", errs.ErrNotOwner, http.StatusNotFound},
			{"too late", errs.ErrTooLateToCancel, http.StatusUnprocessableEntity},
			{"wrong state", errs.ErrWrongState, http.StatusConflict},
			{"lost the race", errs.ErrInvalidTransition, http.StatusConflict},
			{"refund failed", errs.ErrRefundFailed, http.StatusBadGateway},
		}

		for _, tc := range cases {
			s.Run(tc.name, func() {
				s.mockCancel.EXPECT().Cancel(gomock.Any(), bookingID, gomock.Any(), gomock.Any()).
					Return(nil, tc.err).Times(1)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "token")
				httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "")
			})
		}
	})
}

// ================================================================================
// TestGetBooking
// ================================================================================

func (s *BookingHandlerTestSuite) TestGetBooking() {
	bookingID := uuid.New()
	url := "/bookings/" + bookingID.String()

	s.Run("success: returns booking view", func() {
		view := &queries.BookingView{
			ID:           bookingID,
			ListingTitle: "Cabin by the lake",
			Status:       "confirmed",
			TotalCents:   40000,
			Currency:     "usd",
		}
		s.mockQueries.EXPECT().GetByID(gomock.Any(), s.userID, bookingID).
			Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("Cabin by the lake", body["listing_title"])
		s.Equal("confirmed", body["status"])
	})

	s.Run("error: 404 when not visible to actor", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), s.userID, bookingID).
			Return(nil, errs.ErrBookingNotFound).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "")
	})
}

// ================================================================================
// TestGetUserBookings
// ================================================================================

func (s *BookingHandlerTestSuite) TestGetUserBookings() {
	s.Run("success: returns list", func() {
		items := []*queries.BookingListItem{
			{ID: uuid.New(), ListingTitle: "Cabin", Status: "confirmed"},
			{ID: uuid.New(), ListingTitle: "Loft", Status: "pending"},
		}
		s.mockQueries.EXPECT().ListByGuest(gomock.Any(), s.userID, gomock.Any()).
			Return(items, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings", nil, "token")

		var body []map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body, 2)
	})

	s.Run("success: empty list", func() {
		s.mockQueries.EXPECT().ListByGuest(gomock.Any(), s.userID, gomock.Any()).
			Return(nil, nil).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings", nil, "token")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})
}
