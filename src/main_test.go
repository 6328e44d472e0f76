package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"ticketing/src/config"
	"ticketing/src/db"
	"ticketing/src/middlewares"
	"ticketing/src/models"
	"ticketing/src/services"
	"ticketing/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	secret = "secret"
	origin = "http://localhost:3000"
)

type TestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Svc    *services.Services
	Router *gin.Engine

	Customer   models.User
	Admin      models.User
	Token      string
	AdminToken string
	Event      models.Event
	General    models.TicketType
}

func (s *TestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	d, err := db.OpenDialector(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening the test database", err)
	}
	inner, _ := d.DB()
	inner.SetMaxOpenConns(1)
	if err := db.Migrate(d); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	s.DB = d

	cfg := &config.Config{Env: "local", JWTSecret: secret, QRSecret: secret, RefundAutoCompleteDays: 5}
	s.Svc = services.New(d, services.Options{QRSecret: cfg.QRSecret, RefundAutoCompleteDays: cfg.RefundAutoCompleteDays})
	s.Router = setupRouter(d, s.Svc, cfg)

	s.Customer = models.User{Name: "Test User", Email: "someone@example.com", Role: types.ROLE_CUSTOMER}
	s.Admin = models.User{Name: "Door Staff", Email: "staff@example.com", Role: types.ROLE_ADMIN}
	s.Require().NoError(d.Create(&s.Customer).Error)
	s.Require().NoError(d.Create(&s.Admin).Error)

	s.Event = models.Event{Title: "Summer Fest", Location: "Main Hall", DateTime: time.Now().UTC().Add(10 * 24 * time.Hour), CancellationPolicy: "3 days"}
	s.Require().NoError(d.Create(&s.Event).Error)
	s.General = models.TicketType{EventID: s.Event.ID, Name: "General", Price: decimal.NewFromInt(25), TotalQuantity: 5, AvailableQuantity: 5}
	s.Require().NoError(d.Create(&s.General).Error)

	s.Token, err = middlewares.NewToken(secret, s.Customer.ID, s.Customer.Email, s.Customer.Role, time.Hour)
	s.Require().NoError(err)
	s.AdminToken, err = middlewares.NewToken(secret, s.Admin.ID, s.Admin.Email, s.Admin.Role, time.Hour)
	s.Require().NoError(err)
}

func (s *TestSuite) TearDownTest() {
	s.Svc.Drain()
	if inner, err := s.DB.DB(); err == nil {
		inner.Close()
	}
}

func (s *TestSuite) do(method, path, token string, body any) (int, string) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = strings.NewReader(string(b))
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("origin", origin)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	s.Router.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func (s *TestSuite) checkout(quantity int, amount string) (int, string) {
	return s.do("POST", "/api/v1/checkout", s.Token, map[string]any{
		"amount":         amount,
		"payment_method": "card",
		"tickets":        []map[string]any{{"ticket_type_id": s.General.ID, "quantity": quantity}},
		"card_details":   map[string]any{"number": "4242 4242 4242 4242", "holder_name": "Test User", "expiry": "12/30"},
	})
}

func (s *TestSuite) TestPingRoute() {
	code, _ := s.do("GET", "/", "", nil)
	assert.Equal(s.T(), 200, code)
}

func (s *TestSuite) TestMetricsRoute() {
	code, body := s.do("GET", "/metrics", "", nil)
	assert.Equal(s.T(), 200, code)
	assert.Contains(s.T(), body, "go_goroutines")
}

func (s *TestSuite) TestRequiresToken() {
	code, body := s.do("GET", "/api/v1/tickets", "", nil)
	assert.Equal(s.T(), 401, code)
	assert.NotEmpty(s.T(), gjson.Get(body, "error").String())
}

func (s *TestSuite) TestCheckout() {
	s.Run("Should create tickets with 201 status", func() {
		code, body := s.checkout(2, "50.00")
		s.Require().Equal(201, code, body)
		assert.Equal(s.T(), int64(2), gjson.Get(body, "data.createdTickets.#").Int())
		assert.True(s.T(), strings.HasPrefix(gjson.Get(body, "data.orderNumber").String(), "ORD-"))
		assert.Equal(s.T(), "card", gjson.Get(body, "data.payment.payment_method").String())
		assert.NotEmpty(s.T(), gjson.Get(body, "data.createdTickets.0.qr_code").String())
	})

	s.Run("Should reject a mismatched amount", func() {
		code, body := s.checkout(1, "1.00")
		assert.Equal(s.T(), 400, code)
		assert.Equal(s.T(), "AMOUNT_MISMATCH", gjson.Get(body, "code").String())
		assert.Equal(s.T(), "25.00", gjson.Get(body, "details.expected").String())
	})

	s.Run("Should reject an oversell with 409", func() {
		code, body := s.checkout(4, "100.00")
		assert.Equal(s.T(), 409, code)
		assert.Equal(s.T(), "INSUFFICIENT_INVENTORY", gjson.Get(body, "code").String())
		assert.Equal(s.T(), int64(3), gjson.Get(body, "details.available").Int())
	})

	s.Run("Should report insufficient credits with 402", func() {
		code, body := s.do("POST", "/api/v1/checkout", s.Token, map[string]any{
			"amount":      "25",
			"use_credits": true,
			"tickets":     []map[string]any{{"ticket_type_id": s.General.ID, "quantity": 1}},
		})
		assert.Equal(s.T(), 402, code)
		assert.Equal(s.T(), "INSUFFICIENT_CREDITS", gjson.Get(body, "code").String())
		assert.True(s.T(), gjson.Get(body, "details.canPayWithCard").Bool())
	})

	s.Run("Should return a 400 error response for a bad body", func() {
		code, body := s.do("POST", "/api/v1/checkout", s.Token, map[string]any{"tickets": "nope"})
		assert.Equal(s.T(), 400, code)
		assert.NotEmpty(s.T(), gjson.Get(body, "error").String())
	})
}

func (s *TestSuite) TestTicketLifecycle() {
	code, body := s.checkout(1, "25")
	s.Require().Equal(201, code, body)
	ticketID := gjson.Get(body, "data.createdTickets.0.id").Uint()
	qr := gjson.Get(body, "data.createdTickets.0.qr_code").String()

	code, body = s.do("GET", fmt.Sprintf("/api/v1/tickets/%d", ticketID), s.Token, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "General", gjson.Get(body, "data.ticket_type.name").String())

	code, _ = s.do("GET", fmt.Sprintf("/api/v1/tickets/%d", ticketID), s.AdminToken, nil)
	assert.Equal(s.T(), 403, code)

	code, _ = s.do("GET", fmt.Sprintf("/api/v1/tickets/%d/qr", ticketID), s.Token, nil)
	assert.Equal(s.T(), 200, code)

	code, body = s.do("POST", "/api/v1/admin/check-in", s.AdminToken, map[string]any{"code": qr})
	s.Require().Equal(200, code, body)
	assert.True(s.T(), gjson.Get(body, "data.checked_in").Bool())

	code, body = s.do("POST", "/api/v1/admin/check-in", s.AdminToken, map[string]any{"code": qr})
	assert.Equal(s.T(), 409, code)
	assert.Equal(s.T(), "ALREADY_CHECKED_IN", gjson.Get(body, "code").String())

	code, body = s.do("POST", fmt.Sprintf("/api/v1/tickets/%d/refund", ticketID), s.Token, nil)
	assert.Equal(s.T(), 409, code)
	assert.Equal(s.T(), "ALREADY_USED", gjson.Get(body, "code").String())
}

func (s *TestSuite) TestRefundFlow() {
	code, body := s.checkout(1, "25")
	s.Require().Equal(201, code, body)
	ticketID := gjson.Get(body, "data.createdTickets.0.id").Uint()

	code, body = s.do("POST", fmt.Sprintf("/api/v1/tickets/%d/refund", ticketID), s.Token, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "requested", gjson.Get(body, "data.refund_status").String())

	code, body = s.do("GET", "/api/v1/admin/refunds/pending", s.AdminToken, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), int64(1), gjson.Get(body, "data.#").Int())

	code, body = s.do("POST", fmt.Sprintf("/api/v1/admin/tickets/%d/refund-status", ticketID), s.AdminToken, map[string]any{"status": "bogus"})
	assert.Equal(s.T(), 400, code)
	assert.Equal(s.T(), "INVALID_STATUS", gjson.Get(body, "code").String())

	code, body = s.do("POST", fmt.Sprintf("/api/v1/admin/tickets/%d/refund-status", ticketID), s.AdminToken, map[string]any{"status": "completed"})
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "refunded", gjson.Get(body, "data.ticket.status").String())

	code, body = s.do("GET", "/api/v1/credits", s.Token, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "25.00", gjson.Get(body, "data.credits").String())

	code, body = s.do("GET", "/api/v1/credits/history", s.Token, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "refund", gjson.Get(body, "data.transactions.0.type").String())
	assert.Equal(s.T(), "refund", gjson.Get(body, "data.transactions.0.reference.type").String())

	code, body = s.do("POST", fmt.Sprintf("/api/v1/admin/tickets/%d/refund-status", ticketID), s.AdminToken, map[string]any{"status": "completed"})
	assert.Equal(s.T(), 409, code)
	assert.Equal(s.T(), "ALREADY_REFUNDED", gjson.Get(body, "code").String())

	code, body = s.do("GET", fmt.Sprintf("/api/v1/admin/users/%d/credits/reconcile", s.Customer.ID), s.AdminToken, nil)
	assert.Equal(s.T(), 200, code, body)
}

func (s *TestSuite) TestAdminGate() {
	code, body := s.do("POST", "/api/v1/admin/refunds/auto-complete", s.Token, nil)
	assert.Equal(s.T(), 403, code)
	assert.NotEmpty(s.T(), gjson.Get(body, "error").String())

	code, body = s.do("POST", "/api/v1/admin/refunds/auto-complete", s.AdminToken, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), int64(0), gjson.Get(body, "data.completed").Int())
	assert.Equal(s.T(), int64(5), gjson.Get(body, "data.days").Int())
}

func (s *TestSuite) TestAdminCredits() {
	path := fmt.Sprintf("/api/v1/admin/users/%d/credits", s.Customer.ID)
	code, body := s.do("POST", path, s.AdminToken, map[string]any{"amount": "40", "description": "goodwill"})
	s.Require().Equal(201, code, body)
	assert.Equal(s.T(), "admin_adjustment", gjson.Get(body, "data.type").String())

	code, body = s.do("POST", path, s.AdminToken, map[string]any{"amount": "-50"})
	assert.Equal(s.T(), 402, code)
	assert.Equal(s.T(), "INSUFFICIENT_CREDITS", gjson.Get(body, "code").String())

	code, _ = s.do("POST", path, s.AdminToken, map[string]any{"amount": "-15"})
	assert.Equal(s.T(), 201, code)

	code, body = s.do("GET", "/api/v1/credits", s.Token, nil)
	s.Require().Equal(200, code)
	assert.Equal(s.T(), "25.00", gjson.Get(body, "data.credits").String())
}

func (s *TestSuite) TestReserveAndExchange() {
	vip := models.TicketType{EventID: s.Event.ID, Name: "VIP", Price: decimal.NewFromInt(40), TotalQuantity: 2, AvailableQuantity: 2}
	s.Require().NoError(s.DB.Create(&vip).Error)

	code, body := s.do("POST", "/api/v1/reservations", s.Token, map[string]any{"ticket_type_id": s.General.ID, "quantity": 1})
	s.Require().Equal(201, code, body)
	reservedID := gjson.Get(body, "data.0.id").Uint()
	assert.Equal(s.T(), "reserved", gjson.Get(body, "data.0.status").String())

	code, body = s.do("POST", "/api/v1/checkout", s.Token, map[string]any{
		"amount":              "25",
		"reserved_ticket_ids": []uint64{reservedID},
		"card_details":        map[string]any{"number": "4242424242424242", "holder_name": "Test User", "expiry": "12/30"},
		"save_card":           true,
	})
	s.Require().Equal(201, code, body)

	code, body = s.do("GET", "/api/v1/payment-methods", s.Token, nil)
	s.Require().Equal(200, code)
	s.Require().Equal(int64(1), gjson.Get(body, "data.#").Int())
	cardID := gjson.Get(body, "data.0.id").Uint()
	assert.False(s.T(), gjson.Get(body, "data.0.token").Exists())

	code, body = s.do("POST", fmt.Sprintf("/api/v1/tickets/%d/exchange", reservedID), s.Token, map[string]any{
		"new_ticket_type_id": vip.ID,
		"payment_method":     "card",
		"saved_card_id":      cardID,
	})
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), "15", gjson.Get(body, "data.priceDifference").String())
	assert.Equal(s.T(), vip.ID, uint(gjson.Get(body, "data.ticket.ticket_type_id").Uint()))

	code, body = s.do("GET", fmt.Sprintf("/api/v1/events/%d", s.Event.ID), s.Token, nil)
	s.Require().Equal(200, code, body)
	assert.Equal(s.T(), int64(2), gjson.Get(body, "data.ticket_types.#").Int())
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
